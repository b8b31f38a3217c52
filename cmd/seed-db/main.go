// Command seed-db loads the product catalog from a JSON file and registers
// an admin API key. Only the HMAC-SHA256 hash of the key is stored.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cicikitchen/storefront/internal/domain/product"
	"github.com/cicikitchen/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or CICI_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CICI_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("CICI_SEED_ADMIN_KEY")
	}
	if pepper == "" {
		pepper = os.Getenv("CICI_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	raw, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	var products []productJSON
	if err := json.Unmarshal(raw, &products); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	repo := postgres.NewProductRepository(pool)
	for _, p := range products {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		err := repo.Create(ctx, &product.Product{
			ID:          id,
			Name:        p.Name,
			Price:       p.Price,
			Stock:       p.Stock,
			Description: p.Description,
			Image:       p.Image,
		})
		if err != nil {
			return errors.Wrapf(err, "seed product %q", p.Name)
		}
	}
	slog.Info("seeded products", slog.Int("count", len(products)))

	if adminKey != "" {
		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(adminKey))
		hash := hex.EncodeToString(mac.Sum(nil))

		_, err = pool.Exec(ctx, `
			INSERT INTO api_keys (id, key_hash, name, role)
			VALUES ($1, $2, 'admin', 'admin')
			ON CONFLICT (key_hash) DO NOTHING
		`, uuid.New().String(), hash)
		if err != nil {
			return errors.Wrap(err, "seed admin key")
		}
		slog.Info("seeded admin api key")
	}

	return nil
}
