// Package cart keeps a per-session cart snapshot consistent with the backend's cart.
package cart

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/productcache"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/logger"
	"github.com/blakitny/storefront/pkg/metrics"
	"github.com/blakitny/storefront/pkg/types"
)

const (
	opReload = "reload"
	opAdd    = "add"
	opUpdate = "update_quantity"
	opRemove = "remove"
	opClear  = "clear"

	reloadTimeout = 30 * time.Second
)

// Backend is the authenticated cart API of one session.
type Backend interface {
	Authenticated(ctx context.Context) bool
	Cart(ctx context.Context) (*models.CartResponse, error)
	AddToCart(ctx context.Context, variantID types.ID, quantity int) error
	UpdateCartItem(ctx context.Context, lineID types.ID, quantity int) error
	RemoveCartItem(ctx context.Context, lineID types.ID) error
	ClearCart(ctx context.Context) error
}

type productResolver interface {
	Resolve(ctx context.Context, ids []types.ID) map[types.ID]productcache.DisplayInfo
}

// Engine owns one session's snapshot. Mutations always end in a reload, so the
// visible state is whatever the last applied server read returned.
type Engine struct {
	backend  Backend
	products productResolver
	logg     *logger.Logger
	metrics  *metrics.CartMetrics

	mu        sync.Mutex
	snapshot  Snapshot
	reloading bool
	dirty     bool
	settled   chan struct{}
	issued    uint64
	applied   uint64
}

// NewEngine builds an engine with an empty snapshot. logg and m may be nil.
func NewEngine(backend Backend, products productResolver, logg *logger.Logger, m *metrics.CartMetrics) *Engine {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Engine{
		backend:  backend,
		products: products,
		logg:     logg,
		metrics:  m,
		snapshot: Snapshot{Items: []Line{}},
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot.clone()
}

func (e *Engine) TotalPrice() decimal.Decimal {
	return e.Snapshot().TotalPrice()
}

func (e *Engine) ItemCount() int {
	return e.Snapshot().ItemCount()
}

// Reload re-reads the server cart. While another reload is in flight it returns
// immediately; the in-flight reload then reads once more before finishing.
func (e *Engine) Reload(ctx context.Context) {
	e.reload(ctx, false)
}

// reload with wait set blocks a coalesced caller until the in-flight cycle,
// including its trailing read, has been applied. The cycle itself does not
// belong to any caller: a caller whose ctx ends stops waiting, the cycle goes on.
func (e *Engine) reload(ctx context.Context, wait bool) {
	e.mu.Lock()
	if e.reloading {
		e.dirty = true
		settled := e.settled
		e.mu.Unlock()
		e.metrics.IncCoalesced()
		e.logg.Debug(e.logg.WithOperation(ctx, opReload), "cart.reload_coalesced")
		if wait {
			select {
			case <-settled:
			case <-ctx.Done():
			}
		}
		return
	}
	e.reloading = true
	settled := make(chan struct{})
	e.settled = settled
	e.mu.Unlock()

	go e.cycle(context.WithoutCancel(ctx), settled)

	select {
	case <-settled:
	case <-ctx.Done():
	}
}

// cycle reads until no reload was requested during the last read.
func (e *Engine) cycle(ctx context.Context, settled chan struct{}) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, reloadTimeout)
		e.fetchAndApply(readCtx)
		cancel()

		e.mu.Lock()
		if !e.dirty {
			e.reloading = false
			close(settled)
			e.mu.Unlock()
			return
		}
		e.dirty = false
		e.mu.Unlock()
	}
}

func (e *Engine) fetchAndApply(ctx context.Context) {
	start := time.Now()
	ctx = e.logg.WithOperation(ctx, opReload)

	e.mu.Lock()
	e.issued++
	seq := e.issued
	e.mu.Unlock()

	if !e.backend.Authenticated(ctx) {
		e.apply(seq, Snapshot{Items: []Line{}})
		e.done(ctx, opReload, start, nil)
		return
	}

	resp, err := e.backend.Cart(ctx)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			// The session lost its credential mid-flight; it is anonymous now.
			e.apply(seq, Snapshot{Items: []Line{}})
			e.done(ctx, opReload, start, err)
			return
		}
		e.fail(ctx, opReload, start, MsgLoadFailed, err)
		return
	}

	lines := e.buildLines(ctx, resp.Items)
	e.apply(seq, Snapshot{Items: lines})
	e.done(ctx, opReload, start, nil)
}

// apply swaps in a server snapshot unless a newer read was already applied.
func (e *Engine) apply(seq uint64, next Snapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.applied {
		return false
	}
	e.applied = seq
	e.snapshot = next
	return true
}

func (e *Engine) buildLines(ctx context.Context, items []models.CartItem) []Line {
	ids := make([]types.ID, 0, len(items))
	for _, item := range items {
		if item.ProductVariant != nil {
			ids = append(ids, item.ProductVariant.ProductID)
		}
	}
	display := e.products.Resolve(ctx, ids)

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		line := Line{
			ID:          types.NormalizeID(item.ID),
			ProductName: productcache.FallbackName,
			Price:       decimal.Zero,
			Quantity:    MinQuantity,
		}
		if item.Quantity != nil && *item.Quantity > 0 {
			line.Quantity = *item.Quantity
		}
		if v := item.ProductVariant; v != nil {
			line.ProductID = types.NormalizeID(v.ProductID)
			line.ProductVariantID = types.NormalizeID(v.ID)
			if v.Price != nil {
				line.Price = *v.Price
			}
			if v.Size != nil && strings.TrimSpace(v.Size.Name) != "" {
				name := v.Size.Name
				line.SizeName = &name
			}
			if v.Stock != nil {
				stock := *v.Stock
				line.AvailableStock = &stock
			}
		}
		if info, ok := display[line.ProductID]; ok {
			line.ProductName = info.Name
			line.ProductImage = info.Image
			line.Attributes = maps.Clone(info.Attributes)
		}
		lines = append(lines, line)
	}
	return lines
}

// AddToCart asks the backend to add quantity of the item's variant, then reloads.
// Quantity is clamped to [1, 99]; a known stock below it rejects the call without a request.
func (e *Engine) AddToCart(ctx context.Context, item Item, quantity int) {
	start := time.Now()
	ctx = e.logg.WithFields(e.logg.WithOperation(ctx, opAdd), map[string]any{
		"variant_id": item.ProductVariantID.String(),
		"quantity":   quantity,
	})
	quantity = clampQuantity(quantity)

	if item.AvailableStock != nil && quantity > *item.AvailableStock {
		e.fail(ctx, opAdd, start, MsgInsufficientStock, pkgerrors.New(pkgerrors.CodeRejectedLocally, "quantity exceeds stock"))
		return
	}
	if !e.backend.Authenticated(ctx) {
		e.fail(ctx, opAdd, start, MsgAuthRequired, pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential"))
		return
	}
	if err := e.backend.AddToCart(ctx, item.ProductVariantID, quantity); err != nil {
		e.fail(ctx, opAdd, start, messageFor(err, MsgAddFailed), err)
		return
	}
	e.reload(ctx, true)
	e.done(ctx, opAdd, start, nil)
}

// UpdateQuantity sets a line's quantity, clamped to 99. Below 1 it removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, variantID types.ID, quantity int) {
	if quantity < MinQuantity {
		e.RemoveFromCart(ctx, variantID)
		return
	}
	start := time.Now()
	ctx = e.logg.WithFields(e.logg.WithOperation(ctx, opUpdate), map[string]any{
		"variant_id": variantID.String(),
		"quantity":   quantity,
	})
	quantity = clampQuantity(quantity)

	if !e.backend.Authenticated(ctx) {
		e.fail(ctx, opUpdate, start, MsgAuthRequired, pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential"))
		return
	}
	line, ok := e.Snapshot().line(variantID)
	if !ok || line.ID.IsZero() {
		e.logg.Info(ctx, "cart.line_not_found")
		e.reload(ctx, true)
		e.done(ctx, opUpdate, start, nil)
		return
	}
	if err := e.backend.UpdateCartItem(ctx, line.ID, quantity); err != nil {
		e.fail(ctx, opUpdate, start, messageFor(err, MsgUpdateFailed), err)
		return
	}
	e.reload(ctx, true)
	e.done(ctx, opUpdate, start, nil)
}

// RemoveFromCart deletes the line holding variantID, then reloads.
func (e *Engine) RemoveFromCart(ctx context.Context, variantID types.ID) {
	start := time.Now()
	ctx = e.logg.WithField(e.logg.WithOperation(ctx, opRemove), "variant_id", variantID.String())

	if !e.backend.Authenticated(ctx) {
		e.fail(ctx, opRemove, start, MsgAuthRequired, pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential"))
		return
	}
	line, ok := e.Snapshot().line(variantID)
	if !ok || line.ID.IsZero() {
		e.logg.Info(ctx, "cart.line_not_found")
		e.reload(ctx, true)
		e.done(ctx, opRemove, start, nil)
		return
	}
	if err := e.backend.RemoveCartItem(ctx, line.ID); err != nil {
		e.fail(ctx, opRemove, start, messageFor(err, MsgRemoveFailed), err)
		return
	}
	e.reload(ctx, true)
	e.done(ctx, opRemove, start, nil)
}

// ClearCart empties the server cart and reloads whether or not the clear succeeded.
func (e *Engine) ClearCart(ctx context.Context) {
	start := time.Now()
	ctx = e.logg.WithOperation(ctx, opClear)

	if !e.backend.Authenticated(ctx) {
		e.fail(ctx, opClear, start, MsgAuthRequired, pkgerrors.New(pkgerrors.CodeUnauthorized, "no credential"))
		return
	}
	clearErr := e.backend.ClearCart(ctx)
	e.reload(ctx, true)
	if clearErr != nil {
		e.fail(ctx, opClear, start, messageFor(clearErr, MsgClearFailed), clearErr)
		return
	}
	e.done(ctx, opClear, start, nil)
}

func messageFor(err error, fallback string) string {
	if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		return MsgAuthRequired
	}
	return fallback
}

// fail records msg on the snapshot, leaving its items untouched.
func (e *Engine) fail(ctx context.Context, op string, start time.Time, msg string, cause error) {
	if ctx.Err() != nil && errors.Is(cause, context.Canceled) {
		// Caller is gone; no error is left on the snapshot.
		e.metrics.ObserveDuration(op, time.Since(start))
		e.logg.Debug(ctx, "cart.operation_cancelled")
		return
	}
	e.mu.Lock()
	e.snapshot.Error = &msg
	e.mu.Unlock()

	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(cause); typed != nil {
		code = string(typed.Code())
	}
	e.metrics.ObserveDuration(op, time.Since(start))
	e.metrics.IncFailure(op, code)
	ctx = e.logg.WithFields(ctx, map[string]any{"user_message": msg, "code": code})
	if code == string(pkgerrors.CodeDependency) || code == string(pkgerrors.CodeInternal) {
		e.logg.Error(ctx, "cart.operation_failed", cause)
		return
	}
	e.logg.Warn(ctx, "cart.operation_rejected")
}

func (e *Engine) done(ctx context.Context, op string, start time.Time, note error) {
	e.metrics.ObserveDuration(op, time.Since(start))
	e.metrics.IncSuccess(op)
	if note != nil {
		ctx = e.logg.WithField(ctx, "note", note.Error())
	}
	e.logg.Debug(ctx, "cart.operation_done")
}
