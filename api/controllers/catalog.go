package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blakitny/storefront/api/responses"
	"github.com/blakitny/storefront/api/validators"
	"github.com/blakitny/storefront/internal/catalog"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/types"
)

// CatalogService is the read side the catalog endpoints need.
type CatalogService interface {
	Search(ctx context.Context, cfg catalog.FilterConfig) ([]catalog.Listing, error)
	Product(ctx context.Context, id types.ID) (*catalog.Listing, error)
	Facets(ctx context.Context, selectedCategory *types.ID) (*catalog.Facets, error)
}

// CatalogProducts lists products matching the filter in the query string.
func CatalogProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		filter, err := filterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listings, err := svc.Search(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if listings == nil {
			listings = []catalog.Listing{}
		}
		responses.WriteSuccess(w, listings)
	}
}

func CatalogProduct(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id := types.NormalizeID(chi.URLParam(r, "productId"))
		if id.IsZero() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}
		listing, err := svc.Product(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// CatalogFacets returns the filter options; ?category= moves that category's subcategories first.
func CatalogFacets(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		facets, err := svc.Facets(r.Context(), validators.ParseQueryID(r, "category"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, facets)
	}
}

func filterFromQuery(r *http.Request) (catalog.FilterConfig, error) {
	filter := catalog.FilterConfig{
		SubcategoryID: validators.ParseQueryID(r, "subcategory"),
		CategoryID:    validators.ParseQueryID(r, "category"),
		SizeIDs:       validators.ParseQueryIDs(r, "size"),
		FabricIDs:     validators.ParseQueryIDs(r, "fabric"),
		SortMode:      catalog.SortMode(validators.ParseQueryString(r, "sort")),
	}
	var err error
	details := map[string]string{}
	if filter.PriceFrom, err = catalog.ParsePrice(validators.ParseQueryString(r, "price_from")); err != nil {
		details["price_from"] = "must be a number"
	}
	if filter.PriceTo, err = catalog.ParsePrice(validators.ParseQueryString(r, "price_to")); err != nil {
		details["price_to"] = "must be a number"
	}
	if len(details) > 0 {
		return catalog.FilterConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").WithDetails(details)
	}
	return filter, nil
}
