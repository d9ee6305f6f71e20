package gateway

import (
	"context"
	"net/http"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/tokens"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/users/login/", req)
}

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/users/register/", req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if _, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body}, &resp); err != nil {
		return nil, err
	}
	if !resp.Tokens.HasAccess() || !resp.Tokens.HasRefresh() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "malformed auth response")
	}
	return &resp, nil
}

// Refresh trades a refresh token for a new pair. The backend may omit a rotated refresh token,
// in which case the one presented is kept.
func (c *Client) Refresh(ctx context.Context, refresh string) (tokens.Pair, error) {
	var resp tokens.Pair
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/users/refresh/", body: models.RefreshRequest{Refresh: refresh}}, &resp); err != nil {
		return tokens.Pair{}, err
	}
	if !resp.HasAccess() {
		return tokens.Pair{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh returned no access token")
	}
	if !resp.HasRefresh() {
		resp.Refresh = refresh
	}
	return resp, nil
}
