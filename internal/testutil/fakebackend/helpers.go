package fakebackend

import (
	"sort"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/tokens"
	"github.com/blakitny/storefront/pkg/types"
)

// AddProduct registers or replaces a catalog product, keeping insertion order.
func (b *Backend) AddProduct(p models.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := types.NormalizeID(p.ID)
	if _, exists := b.products[id]; !exists {
		b.order = append(b.order, id)
	}
	b.products[id] = p
}

// SetLookups replaces the reference lists served under /catalog/.
func (b *Backend) SetLookups(categories, subcategories, sizes, fabrics []models.Named) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = categories
	b.subcats = subcategories
	b.sizes = sizes
	b.fabrics = fabrics
}

// AddUser registers an account that can log in.
func (b *Backend) AddUser(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = password
}

// Issue mints a valid pair for email without going through /users/login/.
func (b *Backend) Issue(email string) tokens.Pair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(email)
}

// IssueExpired mints a pair whose access token is visibly expired and whose
// refresh token is still accepted.
func (b *Backend) IssueExpired(email string) tokens.Pair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueExpiredLocked(email)
}

// ExpireAccess makes the backend reject an access token with 401.
func (b *Backend) ExpireAccess(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.access, token)
}

// RevokeRefresh makes the backend reject a refresh token.
func (b *Backend) RevokeRefresh(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.refresh, token)
}

// SeedLine puts a line straight into the cart and returns its id.
func (b *Backend) SeedLine(variantID types.ID, quantity int) types.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextLineID++
	b.lines = append(b.lines, line{id: b.nextLineID, variantID: types.NormalizeID(variantID), quantity: quantity})
	return types.NormalizeID(b.nextLineID)
}

// Quantities reports the current cart as variant id to quantity.
func (b *Backend) Quantities() map[types.ID]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[types.ID]int, len(b.lines))
	for _, l := range b.lines {
		out[l.variantID] = l.quantity
	}
	return out
}

// Calls returns how many requests hit a route key such as "GET /cart/".
func (b *Backend) Calls(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

// CallKeys lists every route key that was hit, sorted.
func (b *Backend) CallKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.calls))
	for k := range b.calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fail makes every request to key answer with status until Recover is called.
func (b *Backend) Fail(key string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[key] = status
}

func (b *Backend) Recover(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, key)
}

// Hold blocks requests to key until the returned release func is called.
// The entered channel receives once per request that reaches the hold.
func (b *Backend) Hold(key string) (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	ch := make(chan struct{}, 16)
	b.mu.Lock()
	b.gates[key] = gate
	b.entered[key] = ch
	b.mu.Unlock()

	var released bool
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(b.gates, key)
		delete(b.entered, key)
		close(gate)
	}
}
