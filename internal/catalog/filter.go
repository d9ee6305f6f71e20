package catalog

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/types"
)

// SortMode orders the filtered catalog.
type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortPromo     SortMode = "promo"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortName      SortMode = "name"
)

// FilterConfig is one shopper's filter selection. Nil and empty fields do not filter.
type FilterConfig struct {
	SubcategoryID *types.ID        `json:"subcategory"`
	CategoryID    *types.ID        `json:"category"`
	SizeIDs       []types.ID       `json:"size"`
	FabricIDs     []types.ID       `json:"fabric"`
	PriceFrom     *decimal.Decimal `json:"price_from" validate:"omitempty,gte=0"`
	PriceTo       *decimal.Decimal `json:"price_to" validate:"omitempty,gte=0"`
	SortMode      SortMode         `json:"sort" validate:"omitempty,oneof=newest promo price_asc price_desc name"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate rejects unknown sort modes and negative prices.
func (c FilterConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter")
	}
	details := map[string]string{}
	for _, fe := range errs {
		switch fe.Tag() {
		case "oneof":
			details[fe.Field()] = "must be one of " + fe.Param()
		case "gte":
			details[fe.Field()] = "must not be negative"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").WithDetails(details)
}

func (c FilterConfig) sortMode() SortMode {
	if c.SortMode == "" {
		return SortNewest
	}
	return c.SortMode
}

// ErrInvalidPrice is returned for price text that is not a single decimal number.
var ErrInvalidPrice = errors.New("price must be a number")

// ParsePrice reads a shopper-typed price. Spaces group digits and one comma or dot
// separates decimals, so "1 000,50" is 1000.50. Blank input means "no bound".
func ParsePrice(raw string) (*decimal.Decimal, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if normalized == "" {
		return nil, nil
	}
	if strings.Count(normalized, ",")+strings.Count(normalized, ".") > 1 {
		return nil, ErrInvalidPrice
	}
	d, err := decimal.NewFromString(strings.Replace(normalized, ",", ".", 1))
	if err != nil {
		return nil, ErrInvalidPrice
	}
	return &d, nil
}
