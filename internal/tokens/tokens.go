// Package tokens stores the access/refresh pair of a shopper session.
package tokens

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Pair is the credential pair issued by the backend on login, register and refresh.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// HasAccess reports whether an access token is present at all.
func (p Pair) HasAccess() bool {
	return strings.TrimSpace(p.Access) != ""
}

// HasRefresh reports whether a refresh token is present.
func (p Pair) HasRefresh() bool {
	return strings.TrimSpace(p.Refresh) != ""
}

// AccessUsable reports whether the access token is present and not visibly expired.
// Claims are read without verification; the backend remains the verifier. Opaque
// tokens that do not parse as JWTs are accepted on presence alone.
func (p Pair) AccessUsable(now time.Time) bool {
	if !p.HasAccess() {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.Access, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Before(claims.ExpiresAt.Time)
}

// Provider is the single-session token capability handed to the cart engine and gateway.
type Provider interface {
	Get(ctx context.Context) (Pair, bool, error)
	Set(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

// Store keeps token pairs for many sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) (Pair, bool, error)
	Save(ctx context.Context, sessionID string, pair Pair) error
	Delete(ctx context.Context, sessionID string) error
}

type scoped struct {
	store     Store
	sessionID string
}

// Scoped narrows a multi-session store to one session.
func Scoped(store Store, sessionID string) Provider {
	return &scoped{store: store, sessionID: sessionID}
}

func (s *scoped) Get(ctx context.Context) (Pair, bool, error) {
	return s.store.Load(ctx, s.sessionID)
}

func (s *scoped) Set(ctx context.Context, pair Pair) error {
	return s.store.Save(ctx, s.sessionID, pair)
}

func (s *scoped) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.sessionID)
}
