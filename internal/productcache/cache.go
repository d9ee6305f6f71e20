// Package productcache memoizes per-product display data used to decorate cart lines.
package productcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/pkg/config"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/metrics"
	"github.com/blakitny/storefront/pkg/types"
)

const (
	// FallbackName is shown for products whose detail carries no name.
	FallbackName        = "Product"
	defaultConcurrency  = 8
	defaultFetchTimeout = 15 * time.Second
)

// DisplayInfo is the cached view of a product: enough to render a cart line.
type DisplayInfo struct {
	Name       string         `json:"name"`
	Image      *string        `json:"image"`
	Attributes map[string]any `json:"attributes"`
}

type productFetcher interface {
	Product(ctx context.Context, id types.ID) (*models.Product, error)
}

type entry struct {
	info     DisplayInfo
	storedAt time.Time
}

// Cache is safe for concurrent use and shared by every cart engine of the process.
type Cache struct {
	fetcher      productFetcher
	logg         *logger.Logger
	metrics      *metrics.CartMetrics
	mediaOrigins []string
	ttl          time.Duration
	concurrency  int
	fetchTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	entries map[types.ID]entry
	flight  singleflight.Group
}

// Option configures optional cache behavior.
type Option func(*Cache)

// WithTTL expires entries after d. Zero keeps entries for the life of the process.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.ttl = d
		}
	}
}

// WithConcurrency bounds the number of parallel product fetches per Resolve.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMediaOrigins lists backend origins whose absolute image links are rewritten to relative paths.
func WithMediaOrigins(origins ...string) Option {
	return func(c *Cache) {
		c.mediaOrigins = normalizeOrigins(origins)
	}
}

// WithFetchTimeout bounds a single shared product fetch. It runs detached from the
// callers that joined it, so this is its only deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Cache) {
		c.logg = logg
	}
}

// New builds an empty cache backed by fetcher.
func New(fetcher productFetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		concurrency:  defaultConcurrency,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		entries:      make(map[types.ID]entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	return c
}

// NewFromConfig wires the cache from the cart and backend sections of the config.
func NewFromConfig(fetcher productFetcher, cart config.CartConfig, backend config.BackendConfig, logg *logger.Logger, m *metrics.CartMetrics) *Cache {
	return New(fetcher,
		WithTTL(cart.ProductCacheTTL),
		WithConcurrency(cart.FetchConcurrency),
		WithMediaOrigins(backend.MediaOrigins...),
		WithFetchTimeout(backend.Timeout),
		WithLogger(logg),
		WithMetrics(m),
	)
}

// Lookup returns a cached entry without fetching.
func (c *Cache) Lookup(id types.ID) (DisplayInfo, bool) {
	key := types.NormalizeID(id)
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return DisplayInfo{}, false
	}
	return e.info, true
}

// Resolve returns display data for every id it could obtain. Missing ids are fetched
// once each, in parallel; an id whose fetch fails is simply absent from the result.
func (c *Cache) Resolve(ctx context.Context, ids []types.ID) map[types.ID]DisplayInfo {
	result := make(map[types.ID]DisplayInfo, len(ids))
	var missing []types.ID
	seen := make(map[types.ID]struct{}, len(ids))
	for _, raw := range ids {
		id := types.NormalizeID(raw)
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if info, ok := c.Lookup(id); ok {
			result[id] = info
			continue
		}
		missing = append(missing, id)
	}
	c.metrics.AddCacheLookups(len(result), len(missing))
	if len(missing) == 0 {
		return result
	}

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(c.concurrency)
	for _, id := range missing {
		id := id
		g.Go(func() error {
			info, err := c.fetch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}
			result[id] = info
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		failed := len(multierr.Errors(errs))
		ctx = c.logg.WithFields(ctx, map[string]any{
			"failed":    failed,
			"requested": len(missing),
			"error":     errs.Error(),
		})
		c.logg.Warn(ctx, "productcache.fetch_failed")
	}
	return result
}

// fetch joins or starts the shared fetch for id. The shared fetch outlives any single
// caller: a caller whose ctx ends gets ctx.Err() while the others still get the product.
func (c *Cache) fetch(ctx context.Context, id types.ID) (DisplayInfo, error) {
	ch := c.flight.DoChan(string(id), func() (any, error) {
		if info, ok := c.Lookup(id); ok {
			return info, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		product, err := c.fetcher.Product(fetchCtx, id)
		if err != nil {
			return nil, err
		}
		info := c.displayInfo(product)
		c.mu.Lock()
		c.entries[id] = entry{info: info, storedAt: c.now()}
		c.mu.Unlock()
		return info, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return DisplayInfo{}, res.Err
		}
		return res.Val.(DisplayInfo), nil
	case <-ctx.Done():
		return DisplayInfo{}, ctx.Err()
	}
}

// Invalidate drops the given entries, or every entry when called without ids.
func (c *Cache) Invalidate(ids ...types.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(ids) == 0 {
		c.entries = make(map[types.ID]entry)
		return
	}
	for _, id := range ids {
		delete(c.entries, types.NormalizeID(id))
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl
}

func (c *Cache) displayInfo(p *models.Product) DisplayInfo {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = FallbackName
	}
	var image *string
	if images := p.ActiveImages(); len(images) > 0 {
		src := c.proxied(images[0].Source())
		image = &src
	}
	return DisplayInfo{
		Name:  name,
		Image: image,
		Attributes: map[string]any{
			"binding":      p.Binding,
			"pictureTitle": p.PictureTitle,
			"fabric":       models.NamedName(p.FabricType),
			"category":     models.NamedName(p.Category),
			"subcategory":  models.NamedName(p.Subcategory),
		},
	}
}
