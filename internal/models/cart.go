package models

import "github.com/blakitny/storefront/pkg/types"

// CartResponse is the backend's view of the shopper's cart.
type CartResponse struct {
	Items []CartItem `json:"items"`
}

// CartItem is one server-side cart line. The backend merges lines by variant.
type CartItem struct {
	ID             types.ID `json:"id"`
	Quantity       *int     `json:"quantity"`
	ProductVariant *Variant `json:"product_variant"`
}

// AddToCartRequest is the body of POST /cart/add/.
type AddToCartRequest struct {
	ProductVariantID types.ID `json:"product_variant_id"`
	Quantity         int      `json:"quantity"`
}

// UpdateCartItemRequest is the body of PUT /cart/update/{id}/.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}
