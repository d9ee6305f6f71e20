package cart

import (
	"github.com/shopspring/decimal"

	"github.com/blakitny/storefront/pkg/types"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// User-facing messages recorded in Snapshot.Error.
const (
	MsgAuthRequired      = "authorization required"
	MsgInsufficientStock = "insufficient stock"
	MsgLoadFailed        = "failed to load cart"
	MsgAddFailed         = "failed to add item to cart"
	MsgUpdateFailed      = "failed to update quantity"
	MsgRemoveFailed      = "failed to remove item"
	MsgClearFailed       = "failed to clear cart"
)

// Line is one cart entry, tied to exactly one variant.
type Line struct {
	ID               types.ID        `json:"id,omitempty"`
	ProductID        types.ID        `json:"product_id"`
	ProductName      string          `json:"product_name"`
	ProductImage     *string         `json:"product_image"`
	ProductVariantID types.ID        `json:"product_variant_id"`
	SizeName         *string         `json:"size_name"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	AvailableStock   *int            `json:"available_stock,omitempty"`
	Attributes       map[string]any  `json:"attributes,omitempty"`
}

// Snapshot is the server-confirmed cart plus the last user-facing error.
type Snapshot struct {
	Items []Line  `json:"items"`
	Error *string `json:"error"`
}

// TotalPrice sums price times quantity over every line.
func (s Snapshot) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Items {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// ItemCount sums quantities over every line.
func (s Snapshot) ItemCount() int {
	count := 0
	for _, l := range s.Items {
		count += l.Quantity
	}
	return count
}

func (s Snapshot) line(variantID types.ID) (Line, bool) {
	for _, l := range s.Items {
		if l.ProductVariantID.Equal(variantID) {
			return l, true
		}
	}
	return Line{}, false
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Items: make([]Line, len(s.Items))}
	copy(out.Items, s.Items)
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}

// Item describes what the shopper wants to add.
type Item struct {
	ProductID        types.ID `json:"product_id"`
	ProductVariantID types.ID `json:"product_variant_id"`
	AvailableStock   *int     `json:"available_stock,omitempty"`
}

func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
