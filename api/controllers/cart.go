package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/blakitny/storefront/api/middleware"
	"github.com/blakitny/storefront/api/responses"
	"github.com/blakitny/storefront/api/validators"
	"github.com/blakitny/storefront/internal/cart"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/types"
)

// CartEngines hands out the cart engine bound to a storefront session.
type CartEngines interface {
	Engine(sessionID string) *cart.Engine
}

type cartResponse struct {
	cart.Snapshot
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
}

func newCartResponse(snap cart.Snapshot) cartResponse {
	return cartResponse{Snapshot: snap, TotalPrice: snap.TotalPrice(), ItemCount: snap.ItemCount()}
}

type addCartItemRequest struct {
	ProductID        types.ID `json:"product_id" validate:"required"`
	ProductVariantID types.ID `json:"product_variant_id" validate:"required"`
	Quantity         int      `json:"quantity"`
	AvailableStock   *int     `json:"available_stock"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CartFetch returns the session's last confirmed cart without touching the backend.
func CartFetch(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

// CartReload pulls the backend cart and returns the resulting snapshot.
func CartReload(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		engine.Reload(r.Context())
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

// CartAddItem adds quantity of a variant. Engine failures land in the snapshot's error field.
func CartAddItem(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine.AddToCart(r.Context(), cart.Item{
			ProductID:        payload.ProductID,
			ProductVariantID: payload.ProductVariantID,
			AvailableStock:   payload.AvailableStock,
		}, payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

// CartUpdateItem sets the quantity of a variant's line; zero or less removes it.
func CartUpdateItem(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		variantID, err := variantIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine.UpdateQuantity(r.Context(), variantID, *payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

func CartRemoveItem(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		variantID, err := variantIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		engine.RemoveFromCart(r.Context(), variantID)
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

func CartClear(engines CartEngines, logg *logger.Logger) http.HandlerFunc {
	return withEngine(engines, logg, func(w http.ResponseWriter, r *http.Request, engine *cart.Engine) {
		engine.ClearCart(r.Context())
		responses.WriteSuccess(w, newCartResponse(engine.Snapshot()))
	})
}

func withEngine(engines CartEngines, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *cart.Engine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engines == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable"))
			return
		}
		sessionID, err := sessionIDFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, engines.Engine(sessionID))
	}
}

func variantIDParam(r *http.Request) (types.ID, error) {
	id := types.NormalizeID(chi.URLParam(r, "variantId"))
	if id.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	return id, nil
}

func sessionIDFrom(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return sessionID, nil
}
