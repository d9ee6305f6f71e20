package cart

import (
	"context"
	"sync"
	"time"

	"github.com/blakitny/storefront/internal/tokens"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/metrics"
)

// BackendFactory binds the backend API to one session's tokens.
type BackendFactory func(provider tokens.Provider) Backend

type session struct {
	engine   *Engine
	provider tokens.Provider
	lastUsed time.Time
}

// Registry holds one engine per shopper session, created on first use.
type Registry struct {
	newBackend BackendFactory
	store      tokens.Store
	products   productResolver
	logg       *logger.Logger
	metrics    *metrics.CartMetrics
	idleTTL    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRegistry builds an empty registry. idleTTL of zero keeps engines until Drop.
func NewRegistry(newBackend BackendFactory, store tokens.Store, products productResolver, idleTTL time.Duration, logg *logger.Logger, m *metrics.CartMetrics) *Registry {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Registry{
		newBackend: newBackend,
		store:      store,
		products:   products,
		logg:       logg,
		metrics:    m,
		idleTTL:    idleTTL,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

func (r *Registry) get(sessionID string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		provider := tokens.Scoped(r.store, sessionID)
		s = &session{
			provider: provider,
			engine:   NewEngine(r.newBackend(provider), r.products, r.logg, r.metrics),
		}
		r.sessions[sessionID] = s
	}
	s.lastUsed = r.now()
	return s
}

// Engine returns the session's engine, creating it when needed.
func (r *Registry) Engine(sessionID string) *Engine {
	return r.get(sessionID).engine
}

// Tokens returns the token provider the session's engine uses.
func (r *Registry) Tokens(sessionID string) tokens.Provider {
	return r.get(sessionID).provider
}

// Drop forgets the session's engine. Stored tokens are left alone.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops engines idle for longer than the idle TTL and returns how many went.
func (r *Registry) Prune() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	pruned := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Run prunes idle engines every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(); n > 0 {
				r.logg.Info(r.logg.WithField(ctx, "pruned", n), "cart.registry_pruned")
			}
		}
	}
}
