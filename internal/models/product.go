package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/blakitny/storefront/pkg/types"
)

// Named is the {id, name} shape shared by categories, subcategories, sizes and fabrics.
type Named struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	IsActive *bool    `json:"is_active,omitempty"`
	// Category is only populated on subcategories.
	Category types.ID `json:"category,omitempty"`
}

// Active treats a missing flag as active; only an explicit false soft-deletes.
func (n Named) Active() bool {
	return n.IsActive == nil || *n.IsActive
}

// NamedID returns the id of an optional reference, or zero when absent.
func NamedID(n *Named) types.ID {
	if n == nil {
		return ""
	}
	return n.ID
}

// NamedName returns the name of an optional reference, or nil when absent.
func NamedName(n *Named) any {
	if n == nil || strings.TrimSpace(n.Name) == "" {
		return nil
	}
	return n.Name
}

// Variant is a purchasable size/price combination of a product.
type Variant struct {
	ID        types.ID         `json:"id"`
	ProductID types.ID         `json:"product,omitempty"`
	Size      *Named           `json:"size,omitempty"`
	Price     *decimal.Decimal `json:"price"`
	Stock     *int             `json:"stock,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

func (v Variant) Active() bool {
	return v.IsActive == nil || *v.IsActive
}

// SizeID returns the variant's size id, or zero when the size is missing.
func (v Variant) SizeID() types.ID {
	return NamedID(v.Size)
}

// Image is a product picture. Older payloads carry the link as "image", newer ones as "url".
type Image struct {
	ID       types.ID `json:"id"`
	Image    string   `json:"image,omitempty"`
	URL      string   `json:"url,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

func (i Image) Active() bool {
	return i.IsActive == nil || *i.IsActive
}

// Source returns the image link regardless of which field carried it.
func (i Image) Source() string {
	if s := strings.TrimSpace(i.URL); s != "" {
		return s
	}
	return strings.TrimSpace(i.Image)
}

// Product is the catalog entry returned by both the detail and the with-variants endpoints.
type Product struct {
	ID           types.ID  `json:"id"`
	Name         string    `json:"name"`
	Category     *Named    `json:"category,omitempty"`
	Subcategory  *Named    `json:"subcategory,omitempty"`
	FabricType   *Named    `json:"fabric_type,omitempty"`
	Binding      any       `json:"binding,omitempty"`
	PictureTitle any       `json:"picture_title,omitempty"`
	IsNew        bool      `json:"is_new"`
	IsPromotion  bool      `json:"is_promotion"`
	Variants     []Variant `json:"variants"`
	Images       []Image   `json:"images"`
}

// ActiveVariants filters out soft-deleted variants, keeping order.
func (p Product) ActiveVariants() []Variant {
	out := make([]Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.Active() {
			out = append(out, v)
		}
	}
	return out
}

// ActiveImages filters out soft-deleted images, keeping order.
func (p Product) ActiveImages() []Image {
	out := make([]Image, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Active() && img.Source() != "" {
			out = append(out, img)
		}
	}
	return out
}

// Variant looks up a variant by id, active or not.
func (p Product) Variant(id types.ID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID.Equal(id) {
			return v, true
		}
	}
	return Variant{}, false
}
