// Package auth guards the admin routes with a bcrypt-hashed bearer token.
package auth

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashPassword hashes a plain-text secret using bcrypt cost 12.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("auth.HashPassword: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares plain text against a bcrypt hash.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Admin validates the admin bearer token. The plain token is hashed at
// startup and never kept in memory.
type Admin struct {
	hash  string
	guard *Guard
}

// NewAdmin hashes token. An empty token disables every admin route.
func NewAdmin(token string) (*Admin, error) {
	return newAdmin(token, bcryptCost)
}

func newAdmin(token string, cost int) (*Admin, error) {
	a := &Admin{guard: NewGuard(DefaultMaxAttempts, DefaultBlockWindow)}
	if token == "" {
		return a, nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return nil, fmt.Errorf("auth.NewAdmin: %w", err)
	}
	a.hash = string(b)
	return a, nil
}

// Enabled reports whether an admin token is configured.
func (a *Admin) Enabled() bool { return a.hash != "" }

// Check compares token against the stored hash.
func (a *Admin) Check(token string) bool {
	return a.Enabled() && token != "" && CheckPassword(token, a.hash)
}

// RequireAdmin is middleware that validates a Bearer token from the
// Authorization header. Repeated failures from one IP are blocked for a while.
func (a *Admin) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if a.guard.Blocked(ip) {
			http.Error(w, `{"success":false,"error":"too many failed attempts"}`, http.StatusTooManyRequests)
			return
		}
		if !a.Check(BearerToken(r)) {
			a.guard.Fail(ip)
			http.Error(w, `{"success":false,"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		a.guard.Reset(ip)
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
