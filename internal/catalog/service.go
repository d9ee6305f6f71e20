package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/pkg/config"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/types"
)

type source interface {
	ProductsWithVariants(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id types.ID) (*models.Product, error)
	Categories(ctx context.Context) ([]models.Named, error)
	Subcategories(ctx context.Context) ([]models.Named, error)
	Sizes(ctx context.Context) ([]models.Named, error)
	Fabrics(ctx context.Context) ([]models.Named, error)
}

// Listing is a product as shown in the catalog grid.
type Listing struct {
	models.Product
	PriceRange *PriceRange `json:"price_range"`
	Image      *string     `json:"image"`
}

func listingOf(p models.Product) Listing {
	l := Listing{Product: p, PriceRange: PriceRangeOf(p)}
	if images := p.ActiveImages(); len(images) > 0 {
		src := images[0].Source()
		l.Image = &src
	}
	return l
}

// Facets are the filter options offered next to the listing.
type Facets struct {
	Categories    []models.Named `json:"categories"`
	Subcategories []models.Named `json:"subcategories"`
	Sizes         []models.Named `json:"sizes"`
	Fabrics       []models.Named `json:"fabrics"`
	PriceRange    *PriceRange    `json:"price_range"`
}

// Service serves catalog queries from a periodically refreshed copy of the backend catalog.
type Service struct {
	source source
	logg   *logger.Logger
	locale string
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	products []models.Product
	loadedAt time.Time
	flight   singleflight.Group
}

func NewService(src source, cfg config.CatalogConfig, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	locale := cfg.Locale
	if locale == "" {
		locale = DefaultLocale
	}
	return &Service{
		source: src,
		logg:   logg,
		locale: locale,
		ttl:    cfg.CacheTTL,
		now:    time.Now,
	}
}

// Search validates cfg and runs it against the cached catalog.
func (s *Service) Search(ctx context.Context, cfg FilterConfig) ([]Listing, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	products, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	matched := Query(products, cfg, NewCollator(s.locale))
	out := make([]Listing, 0, len(matched))
	for _, p := range matched {
		out = append(out, listingOf(p))
	}
	return out, nil
}

// Product returns one product from the backend's detail endpoint.
func (s *Service) Product(ctx context.Context, id types.ID) (*Listing, error) {
	p, err := s.source.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	l := listingOf(*p)
	return &l, nil
}

// Facets lists active filter options. Subcategories of selectedCategory come first.
func (s *Service) Facets(ctx context.Context, selectedCategory *types.ID) (*Facets, error) {
	var (
		facets Facets
		all    []models.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		facets.Categories, err = s.source.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		facets.Subcategories, err = s.source.Subcategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		facets.Sizes, err = s.source.Sizes(gctx)
		return err
	})
	g.Go(func() (err error) {
		facets.Fabrics, err = s.source.Fabrics(gctx)
		return err
	})
	g.Go(func() (err error) {
		all, err = s.catalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	facets.Categories = activeOnly(facets.Categories)
	facets.Sizes = activeOnly(facets.Sizes)
	facets.Fabrics = activeOnly(facets.Fabrics)
	facets.Subcategories = OrderSubcategories(facets.Subcategories, selectedCategory)
	for _, p := range all {
		r := PriceRangeOf(p)
		if r == nil {
			continue
		}
		if facets.PriceRange == nil {
			facets.PriceRange = &PriceRange{Min: r.Min, Max: r.Max}
			continue
		}
		if r.Min.LessThan(facets.PriceRange.Min) {
			facets.PriceRange.Min = r.Min
		}
		if r.Max.GreaterThan(facets.PriceRange.Max) {
			facets.PriceRange.Max = r.Max
		}
	}
	return &facets, nil
}

// OrderSubcategories drops inactive entries and moves those of the selected category to the front.
func OrderSubcategories(subcategories []models.Named, selectedCategory *types.ID) []models.Named {
	active := activeOnly(subcategories)
	if selectedCategory == nil || selectedCategory.IsZero() {
		return active
	}
	primary := make([]models.Named, 0, len(active))
	rest := make([]models.Named, 0, len(active))
	for _, sub := range active {
		if !sub.Category.IsZero() && sub.Category.Equal(*selectedCategory) {
			primary = append(primary, sub)
			continue
		}
		rest = append(rest, sub)
	}
	return append(primary, rest...)
}

func activeOnly(list []models.Named) []models.Named {
	out := make([]models.Named, 0, len(list))
	for _, n := range list {
		if n.Active() {
			out = append(out, n)
		}
	}
	return out
}

// Invalidate forces the next query to reload the catalog.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedAt = time.Time{}
}

func (s *Service) catalog(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	products, loadedAt := s.products, s.loadedAt
	s.mu.RUnlock()
	if !loadedAt.IsZero() && (s.ttl <= 0 || s.now().Sub(loadedAt) < s.ttl) {
		return products, nil
	}

	v, err, _ := s.flight.Do("catalog", func() (any, error) {
		fresh, err := s.source.ProductsWithVariants(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.products = fresh
		s.loadedAt = s.now()
		s.mu.Unlock()
		s.logg.Info(s.logg.WithField(ctx, "products", len(fresh)), "catalog.loaded")
		return fresh, nil
	})
	if err == nil {
		return v.([]models.Product), nil
	}
	if products != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "catalog.serving_stale")
		return products, nil
	}
	if pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return nil, err
}
