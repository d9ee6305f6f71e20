package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/blakitny/storefront/internal/models"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/types"
)

// Product fetches the product detail used to decorate cart lines.
func (c *Client) Product(ctx context.Context, id types.ID) (*models.Product, error) {
	if id.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var product models.Product
	path := fmt.Sprintf("/catalog/products/%s/", url.PathEscape(id.String()))
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductsWithVariants fetches the full catalog consumed by the query engine.
func (c *Client) ProductsWithVariants(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/catalog/products-with-variants/"}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Sizes(ctx context.Context) ([]models.Named, error) {
	return c.namedList(ctx, "/catalog/sizes/")
}

func (c *Client) Fabrics(ctx context.Context) ([]models.Named, error) {
	return c.namedList(ctx, "/catalog/fabrics/")
}

func (c *Client) Categories(ctx context.Context) ([]models.Named, error) {
	return c.namedList(ctx, "/catalog/categories/")
}

func (c *Client) Subcategories(ctx context.Context) ([]models.Named, error) {
	return c.namedList(ctx, "/catalog/subcategories/")
}

func (c *Client) namedList(ctx context.Context, path string) ([]models.Named, error) {
	var list []models.Named
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path}, &list); err != nil {
		return nil, err
	}
	return list, nil
}
