// Package catalog derives the filtered, sorted product listing shown to shoppers.
package catalog

import (
	"slices"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/pkg/types"
)

// DefaultLocale is the storefront's collation locale.
const DefaultLocale = "ru"

// PriceRange spans the prices of a product's active variants.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// PriceRangeOf returns nil when no active variant carries a price.
func PriceRangeOf(p models.Product) *PriceRange {
	var r *PriceRange
	for _, v := range p.ActiveVariants() {
		if v.Price == nil {
			continue
		}
		if r == nil {
			r = &PriceRange{Min: *v.Price, Max: *v.Price}
			continue
		}
		if v.Price.LessThan(r.Min) {
			r.Min = *v.Price
		}
		if v.Price.GreaterThan(r.Max) {
			r.Max = *v.Price
		}
	}
	return r
}

// NewCollator returns a collator for locale, falling back to DefaultLocale.
// Collators are not safe for concurrent use; build one per query.
func NewCollator(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Russian
	}
	return collate.New(tag)
}

// Query filters products by every set dimension of cfg, then stable-sorts them.
// The input slice is not modified.
func Query(products []models.Product, cfg FilterConfig, collator *collate.Collator) []models.Product {
	f := newMatcher(cfg)
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.match(p) {
			out = append(out, p)
		}
	}

	switch cfg.sortMode() {
	case SortPriceAsc, SortPriceDesc:
		desc := cfg.sortMode() == SortPriceDesc
		slices.SortStableFunc(out, func(a, b models.Product) int {
			return comparePrice(PriceRangeOf(a), PriceRangeOf(b), desc)
		})
	case SortName:
		if collator == nil {
			collator = NewCollator(DefaultLocale)
		}
		slices.SortStableFunc(out, func(a, b models.Product) int {
			return collator.CompareString(a.Name, b.Name)
		})
	case SortPromo:
		slices.SortStableFunc(out, func(a, b models.Product) int {
			return compareFlag(a.IsPromotion, b.IsPromotion)
		})
	default:
		slices.SortStableFunc(out, func(a, b models.Product) int {
			return compareFlag(a.IsNew, b.IsNew)
		})
	}
	return out
}

// comparePrice orders by minimum price; products without a price go last in both directions.
func comparePrice(a, b *PriceRange, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := a.Min.Cmp(b.Min)
	if desc {
		return -c
	}
	return c
}

func compareFlag(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return -1
	}
	return 1
}

type matcher struct {
	cfg     FilterConfig
	sizes   types.IDSet
	fabrics types.IDSet
}

func newMatcher(cfg FilterConfig) matcher {
	return matcher{
		cfg:     cfg,
		sizes:   types.NewIDSet(cfg.SizeIDs...),
		fabrics: types.NewIDSet(cfg.FabricIDs...),
	}
}

func (m matcher) match(p models.Product) bool {
	if id := m.cfg.SubcategoryID; id != nil && !id.IsZero() {
		sub := models.NamedID(p.Subcategory)
		if sub.IsZero() || !sub.Equal(*id) {
			return false
		}
	}
	if id := m.cfg.CategoryID; id != nil && !id.IsZero() {
		cat := models.NamedID(p.Category)
		if cat.IsZero() || !cat.Equal(*id) {
			return false
		}
	}
	if len(m.fabrics) > 0 && !m.fabrics.Has(models.NamedID(p.FabricType)) {
		return false
	}
	if len(m.sizes) > 0 && !m.hasSize(p) {
		return false
	}
	if m.cfg.PriceFrom == nil && m.cfg.PriceTo == nil {
		return true
	}
	r := PriceRangeOf(p)
	if r == nil {
		return false
	}
	if m.cfg.PriceFrom != nil && r.Min.LessThan(*m.cfg.PriceFrom) {
		return false
	}
	if m.cfg.PriceTo != nil && r.Max.GreaterThan(*m.cfg.PriceTo) {
		return false
	}
	return true
}

func (m matcher) hasSize(p models.Product) bool {
	for _, v := range p.ActiveVariants() {
		if m.sizes.Has(v.SizeID()) {
			return true
		}
	}
	return false
}
