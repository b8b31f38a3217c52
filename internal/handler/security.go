package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/cicikitchen/storefront/internal/domain/auth"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok
}

// Security authenticates requests via HMAC-SHA256 hashed API keys. The
// pepper is injected from configuration; no secret is compiled in.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given key repository and pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper}
}

// Authenticate resolves the api_key header (or Authorization bearer token)
// to a principal. It returns nil when the key is missing or unknown.
func (s *Security) Authenticate(ctx context.Context, r *http.Request) *auth.Principal {
	key := r.Header.Get("api_key")
	if key == "" {
		if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
			key = strings.TrimPrefix(bearer, "Bearer ")
		}
	}
	if key == "" {
		return nil
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil
	}

	// Constant-time re-check of the stored hash guards against a repository
	// returning a stale or wrong row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil
	}

	return &auth.Principal{ID: info.ID, Name: info.Name, Role: info.Role}
}

// RequireAdmin rejects requests without a valid admin API key.
func (s *Security) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := s.Authenticate(r.Context(), r)
		if p == nil || !p.IsAdmin() {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Code:    http.StatusUnauthorized,
				Message: "admin credentials required",
			})
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sessionKey struct{}

// sessionFromContext returns the cart owner ID set by requireSession.
func sessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// requireSession extracts the X-Session-ID header identifying the cart
// owner. Carts belong to browsing sessions, so the header is mandatory on
// every cart route.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Session-ID"))
		if id == "" {
			badRequest(w, "X-Session-ID header is required")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
