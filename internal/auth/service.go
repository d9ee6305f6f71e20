// Package auth moves a storefront session between anonymous and signed-in states.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/blakitny/storefront/internal/cart"
	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/tokens"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, sessionID string, req LoginRequest) (*SessionResponse, error)
	Register(ctx context.Context, sessionID string, req RegisterRequest) (*SessionResponse, error)
	Logout(ctx context.Context, sessionID string) error
	Bootstrap(ctx context.Context, sessionID string) (*SessionResponse, error)
}

type credentialExchanger interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
}

// ProfileFetcher loads the signed-in profile of one session.
type ProfileFetcher interface {
	Me(ctx context.Context) (*models.Profile, error)
}

// ProfileFunc binds a profile lookup to one session's tokens.
type ProfileFunc func(provider tokens.Provider) ProfileFetcher

type sessionCarts interface {
	Engine(sessionID string) *cart.Engine
	Tokens(sessionID string) tokens.Provider
}

type service struct {
	backend  credentialExchanger
	profiles ProfileFunc
	carts    sessionCarts
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Backend  credentialExchanger
	Profiles ProfileFunc
	Carts    sessionCarts
	Logger   *logger.Logger
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile lookup is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart registry is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		backend:  params.Backend,
		profiles: params.Profiles,
		carts:    params.Carts,
		logg:     logg,
	}, nil
}

func (s *service) Login(ctx context.Context, sessionID string, req LoginRequest) (*SessionResponse, error) {
	resp, err := s.backend.Login(ctx, models.LoginRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}
	return s.signIn(ctx, sessionID, resp)
}

func (s *service) Register(ctx context.Context, sessionID string, req RegisterRequest) (*SessionResponse, error) {
	resp, err := s.backend.Register(ctx, models.RegisterRequest{
		Email:           strings.TrimSpace(req.Email),
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "registration rejected")
		}
		return nil, err
	}
	return s.signIn(ctx, sessionID, resp)
}

// signIn stores the new pair and reloads the cart so it reflects the account's server cart.
func (s *service) signIn(ctx context.Context, sessionID string, resp *models.AuthResponse) (*SessionResponse, error) {
	if err := s.carts.Tokens(sessionID).Set(ctx, resp.Tokens); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session tokens")
	}
	s.carts.Engine(sessionID).Reload(ctx)
	s.logg.Info(s.logg.WithField(ctx, "user_id", resp.UserID.String()), "auth.signed_in")
	return &SessionResponse{
		Authenticated: true,
		User:          &models.Profile{UserID: resp.UserID, Email: resp.Email},
	}, nil
}

// Logout forgets the session's tokens; the reload then yields the anonymous empty cart.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.carts.Tokens(sessionID).Clear(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session tokens")
	}
	s.carts.Engine(sessionID).Reload(ctx)
	s.logg.Info(ctx, "auth.signed_out")
	return nil
}

// Bootstrap restores a returning session. A stored pair that the backend no longer
// accepts, even after a refresh, is discarded and the session continues anonymously.
func (s *service) Bootstrap(ctx context.Context, sessionID string) (*SessionResponse, error) {
	provider := s.carts.Tokens(sessionID)
	pair, ok, err := provider.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session tokens")
	}
	if !ok || !pair.HasAccess() || !pair.HasRefresh() {
		return anonymous(), nil
	}

	profile, err := s.profiles(provider).Me(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.bootstrap_failed")
		if clearErr := provider.Clear(ctx); clearErr != nil {
			s.logg.Error(ctx, "auth.clear_tokens_failed", clearErr)
		}
		s.carts.Engine(sessionID).Reload(ctx)
		return anonymous(), nil
	}
	return &SessionResponse{Authenticated: true, User: profile}, nil
}
