package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

const cookieName = "session"

// claims is the signed cookie payload.
type claims struct {
	Authenticated bool  `json:"auth"`
	IssuedAt      int64 `json:"iat"`
	ExpiresAt     int64 `json:"exp"`
}

// Sessions issues and verifies HMAC-SHA256 signed session cookies. The
// cookie is client-held; the server keeps no session state beyond the
// signing key.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessions creates a Sessions manager. secure controls the cookie Secure
// flag and should be set in production.
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

// Issue sets an authenticated session cookie on the response.
func (s *Sessions) Issue(w http.ResponseWriter) error {
	now := time.Now()
	value, err := s.encode(claims{
		Authenticated: true,
		IssuedAt:      now.Unix(),
		ExpiresAt:     now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticated reports whether the request carries a valid, unexpired
// session cookie. Tampered or damaged cookies are treated as absent.
func (s *Sessions) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return false
	}
	c, ok := s.decode(cookie.Value)
	if !ok {
		return false
	}
	return c.Authenticated && time.Now().Unix() < c.ExpiresAt
}

// encode produces "base64url(payload).base64url(hmac)".
func (s *Sessions) encode(c claims) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + s.sign(encoded), nil
}

func (s *Sessions) decode(value string) (claims, bool) {
	var c claims
	dot := -1
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return c, false
	}
	encoded, sig := value[:dot], value[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(s.sign(encoded))) {
		return c, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return c, false
	}
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, false
	}
	return c, true
}

func (s *Sessions) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
