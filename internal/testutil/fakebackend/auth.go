package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/tokens"
)

// AccessTTL is the lifetime stamped into access tokens minted by the backend.
const AccessTTL = 15 * time.Minute

var signingKey = []byte("fakebackend-signing-key")

// signAccessLocked mints an HS256 access token for email expiring at exp.
func (b *Backend) signAccessLocked(email string, exp time.Time) string {
	b.issued++
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        fmt.Sprintf("access-%d", b.issued),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-AccessTTL)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *Backend) issueLocked(email string) tokens.Pair {
	pair := tokens.Pair{Access: b.signAccessLocked(email, time.Now().Add(AccessTTL))}
	pair.Refresh = fmt.Sprintf("refresh-%d", b.issued)
	b.access[pair.Access] = email
	b.refresh[pair.Refresh] = email
	return pair
}

// issueExpiredLocked mints a pair whose access token expired a minute ago. The
// backend does not accept it; the refresh token is valid.
func (b *Backend) issueExpiredLocked(email string) tokens.Pair {
	pair := tokens.Pair{Access: b.signAccessLocked(email, time.Now().Add(-time.Minute))}
	pair.Refresh = fmt.Sprintf("refresh-%d", b.issued)
	b.refresh[pair.Refresh] = email
	return pair
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.users[req.Email]; !ok || pw != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"invalid credentials"}})
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{UserID: "1", Email: req.Email, Tokens: b.issueLocked(req.Email)})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Email]; exists || req.Password != req.PasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"already registered"}})
		return
	}
	b.users[req.Email] = req.Password
	writeJSON(w, http.StatusCreated, models.AuthResponse{UserID: "2", Email: req.Email, Tokens: b.issueLocked(req.Email)})
}

// refreshTokens issues a new access token only; the refresh token is not rotated.
func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.refresh[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token not valid"})
		return
	}
	access := b.signAccessLocked(email, time.Now().Add(AccessTTL))
	b.access[access] = email
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	email := b.access[token]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Profile{UserID: "1", Email: email})
}
