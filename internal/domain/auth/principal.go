// Package auth defines the authenticated principal model. Customers and
// admins share one identity abstraction distinguished by role; admin-only
// surfaces check the role rather than maintaining a separate auth flow.
package auth

import "context"

// Role tags a principal's permission level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Principal is an authenticated caller.
type Principal struct {
	ID   string
	Name string
	Role Role
}

// IsAdmin reports whether the principal may use admin surfaces.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// APIKey holds the stored form of an issued key. Only the HMAC-SHA256 hash
// of the key material is persisted; the signing pepper comes from config.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Role    Role
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}
