// Package fakebackend is an in-memory stand-in for the retailer's REST backend used by tests.
package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/pkg/types"
)

type line struct {
	id        int
	variantID types.ID
	quantity  int
}

// Backend holds catalog, cart and credential state behind an httptest server.
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	products   map[types.ID]models.Product
	order      []types.ID
	sizes      []models.Named
	fabrics    []models.Named
	subcats    []models.Named
	categories []models.Named
	lines      []line
	nextLineID int
	access     map[string]string
	refresh    map[string]string
	users      map[string]string
	issued     int
	calls      map[string]int
	failures   map[string]int
	gates      map[string]chan struct{}
	entered    map[string]chan struct{}
}

// New starts a backend. Close it with t.Cleanup(b.Close).
func New() *Backend {
	b := &Backend{
		products:   map[types.ID]models.Product{},
		nextLineID: 100,
		access:     map[string]string{},
		refresh:    map[string]string{},
		users:      map[string]string{},
		calls:      map[string]int{},
		failures:   map[string]int{},
		gates:      map[string]chan struct{}{},
		entered:    map[string]chan struct{}{},
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

func (b *Backend) Close() { b.Server.Close() }

// URL is the base URL handed to the gateway client.
func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.track)
	r.Route("/cart", func(r chi.Router) {
		r.Use(b.requireBearer)
		r.Get("/", b.getCart)
		r.Post("/add/", b.addToCart)
		r.Put("/update/{id}/", b.updateLine)
		r.Delete("/remove/{id}/", b.removeLine)
		r.Delete("/clear/", b.clearCart)
	})
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/products/{id}/", b.getProduct)
		r.Get("/products-with-variants/", b.listProducts)
		r.Get("/sizes/", b.listNamed(func() []models.Named { return b.sizes }))
		r.Get("/fabrics/", b.listNamed(func() []models.Named { return b.fabrics }))
		r.Get("/categories/", b.listNamed(func() []models.Named { return b.categories }))
		r.Get("/subcategories/", b.listNamed(func() []models.Named { return b.subcats }))
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/login/", b.login)
		r.Post("/register/", b.register)
		r.Post("/refresh/", b.refreshTokens)
		r.With(b.requireBearer).Get("/me/", b.me)
	})
	return r
}

// Key identifies a route for counters, failures and gates: "GET /cart/", "GET /catalog/products/{id}/".
func routeKey(r *http.Request) string {
	path := r.URL.Path
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return r.Method + " /" + strings.Join(parts, "/") + "/"
}

func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		b.mu.Lock()
		b.calls[key]++
		status := b.failures[key]
		gate := b.gates[key]
		entered := b.entered[key]
		b.mu.Unlock()

		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		if gate != nil {
			<-gate
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, ok := b.access[token]
		b.mu.Unlock()
		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token not valid"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (b *Backend) getCart(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]map[string]any, 0, len(b.lines))
	for _, l := range b.lines {
		variant, productID := b.findVariantLocked(l.variantID)
		payload := map[string]any{
			"id":      variant.ID,
			"product": productID,
			"price":   variant.Price,
		}
		if variant.Stock != nil {
			payload["stock"] = *variant.Stock
		}
		if variant.Size != nil {
			payload["size"] = map[string]any{"id": variant.Size.ID, "name": variant.Size.Name}
		}
		items = append(items, map[string]any{
			"id":              l.id,
			"quantity":        l.quantity,
			"product_variant": payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (b *Backend) findVariantLocked(id types.ID) (models.Variant, types.ID) {
	for _, pid := range b.order {
		if v, ok := b.products[pid].Variant(id); ok {
			return v, pid
		}
	}
	zero := decimal.Zero
	return models.Variant{ID: id, Price: &zero}, ""
}

func (b *Backend) addToCart(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"quantity": "invalid"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, pid := b.findVariantLocked(req.ProductVariantID); pid == "" || !v.Active() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "variant not found"})
		return
	}
	for i := range b.lines {
		if b.lines[i].variantID.Equal(req.ProductVariantID) {
			b.lines[i].quantity += req.Quantity
			writeJSON(w, http.StatusCreated, map[string]string{"message": "added"})
			return
		}
	}
	b.nextLineID++
	b.lines = append(b.lines, line{id: b.nextLineID, variantID: types.NormalizeID(req.ProductVariantID), quantity: req.Quantity})
	writeJSON(w, http.StatusCreated, map[string]string{"message": "added"})
}

func (b *Backend) lineIndexLocked(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	for i, l := range b.lines {
		if l.id == id {
			return i
		}
	}
	return -1
}

func (b *Backend) updateLine(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity missing"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.lineIndexLocked(r)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	if req.Quantity <= 0 {
		b.lines = append(b.lines[:idx], b.lines[idx+1:]...)
		writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
		return
	}
	b.lines[idx].quantity = req.Quantity
	writeJSON(w, http.StatusOK, map[string]any{"id": b.lines[idx].id, "quantity": req.Quantity})
}

func (b *Backend) removeLine(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.lineIndexLocked(r)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	b.lines = append(b.lines[:idx], b.lines[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) clearCart(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.lines = nil
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.products[types.NormalizeID(chi.URLParam(r, "id"))]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) listProducts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	out := make([]models.Product, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.products[id])
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listNamed(get func() []models.Named) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		list := append([]models.Named(nil), get()...)
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, list)
	}
}
