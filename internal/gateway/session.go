package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/tokens"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/types"
)

// ErrNoCredential is returned when an authenticated call has no token it can use.
var ErrNoCredential = pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization required")

// Session performs authenticated calls with the tokens of one shopper session.
type Session struct {
	client *Client
	tokens tokens.Provider
	now    func() time.Time
}

// ForSession binds the client to a session's token provider.
func (c *Client) ForSession(provider tokens.Provider) *Session {
	return &Session{client: c, tokens: provider, now: time.Now}
}

// Authenticated reports whether the session holds a credential it can call with:
// an access token not visibly expired, or a refresh token that can mint one.
func (s *Session) Authenticated(ctx context.Context) bool {
	pair, ok, err := s.tokens.Get(ctx)
	if err != nil || !ok {
		return false
	}
	return pair.AccessUsable(s.now()) || pair.HasRefresh()
}

// do runs an authenticated request. An access token that is visibly expired is
// refreshed before the call. A 401 with a refresh token held triggers pause,
// refresh, pause, single retry. A failed refresh signs the session out.
func (s *Session) do(ctx context.Context, req request, dest any) error {
	pair, ok, err := s.tokens.Get(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session tokens")
	}
	if !ok || (!pair.HasAccess() && !pair.HasRefresh()) {
		return ErrNoCredential
	}

	if !pair.AccessUsable(s.now()) {
		if !pair.HasRefresh() {
			return ErrNoCredential
		}
		if pair, err = s.refresh(ctx, pair); err != nil {
			return err
		}
		req.bearer = pair.Access
		_, err = s.client.do(ctx, req, dest)
		return err
	}

	req.bearer = pair.Access
	status, err := s.client.do(ctx, req, dest)
	if err == nil || status != http.StatusUnauthorized || !pair.HasRefresh() {
		return err
	}

	if err := s.client.sleep(ctx, s.client.refreshBackoff); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh backoff interrupted")
	}
	refreshed, err := s.refresh(ctx, pair)
	if err != nil {
		return err
	}
	if err := s.client.sleep(ctx, s.client.refreshBackoff); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh backoff interrupted")
	}

	req.bearer = refreshed.Access
	_, err = s.client.do(ctx, req, dest)
	return err
}

// refresh trades the refresh token for a new pair and stores it. On rejection the
// session's tokens are cleared.
func (s *Session) refresh(ctx context.Context, pair tokens.Pair) (tokens.Pair, error) {
	refreshed, err := s.client.Refresh(ctx, pair.Refresh)
	if err != nil {
		s.client.logg.Warn(s.client.logg.WithField(ctx, "error", err.Error()), "gateway.refresh_failed")
		if clearErr := s.tokens.Clear(ctx); clearErr != nil {
			s.client.logg.Error(ctx, "gateway.clear_tokens_failed", clearErr)
		}
		return tokens.Pair{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session expired")
	}
	if err := s.tokens.Set(ctx, refreshed); err != nil {
		return tokens.Pair{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refreshed tokens")
	}
	return refreshed, nil
}

// Cart fetches the authoritative cart.
func (s *Session) Cart(ctx context.Context) (*models.CartResponse, error) {
	var cart models.CartResponse
	if err := s.do(ctx, request{method: http.MethodGet, path: "/cart/"}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity of a variant; the backend merges with an existing line.
func (s *Session) AddToCart(ctx context.Context, variantID types.ID, quantity int) error {
	body := models.AddToCartRequest{ProductVariantID: variantID, Quantity: quantity}
	return s.do(ctx, request{method: http.MethodPost, path: "/cart/add/", body: body}, nil)
}

// UpdateCartItem sets the quantity of a server-side line.
func (s *Session) UpdateCartItem(ctx context.Context, lineID types.ID, quantity int) error {
	path := fmt.Sprintf("/cart/update/%s/", url.PathEscape(lineID.String()))
	return s.do(ctx, request{method: http.MethodPut, path: path, body: models.UpdateCartItemRequest{Quantity: quantity}}, nil)
}

// RemoveCartItem deletes a server-side line.
func (s *Session) RemoveCartItem(ctx context.Context, lineID types.ID) error {
	path := fmt.Sprintf("/cart/remove/%s/", url.PathEscape(lineID.String()))
	return s.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}

// ClearCart deletes every line of the cart.
func (s *Session) ClearCart(ctx context.Context) error {
	return s.do(ctx, request{method: http.MethodDelete, path: "/cart/clear/"}, nil)
}

// Me returns the signed-in profile.
func (s *Session) Me(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := s.do(ctx, request{method: http.MethodGet, path: "/users/me/"}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
