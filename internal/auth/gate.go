// Package auth implements the password gate and session cookies protecting
// every endpoint except login and logout.
package auth

import (
	"encoding/json"
	"net/http"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	"github.com/bfjia/VeryUsefulDownloadingTool/internal/domain"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// Gate authenticates requests against the single configured password. Only
// the bcrypt hash is held in memory; it is computed once at startup and the
// Gate is passed explicitly to whoever needs it.
type Gate struct {
	hash     []byte
	sessions *Sessions
}

// NewGate hashes the password and builds the gate around the session manager.
func NewGate(password string, sessions *Sessions) (*Gate, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: hash, sessions: sessions}, nil
}

// Verify checks a submitted password against the stored hash.
func (g *Gate) Verify(password string) bool {
	if password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
}

// Sessions exposes the session manager for the login/logout handlers.
func (g *Gate) Sessions() *Sessions {
	return g.sessions
}

// Require is the middleware guarding protected endpoints. Unauthenticated
// GETs are redirected to login with the original target preserved;
// unauthenticated non-GETs get a 401 JSON body.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.sessions.Authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet {
			target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(domain.ErrorResponse{
			Error:    "Authentication required.",
			LoginURL: LoginPath,
		})
	})
}
