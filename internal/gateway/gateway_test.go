package gateway

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakitny/storefront/internal/models"
	"github.com/blakitny/storefront/internal/testutil/fakebackend"
	"github.com/blakitny/storefront/internal/tokens"
	pkgerrors "github.com/blakitny/storefront/pkg/errors"
	"github.com/blakitny/storefront/pkg/types"
)

func newTestClient(t *testing.T) (*Client, *fakebackend.Backend, *[]time.Duration) {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	client, err := NewClient(backend.URL() + "/")
	require.NoError(t, err)
	var pauses []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	return client, backend, &pauses
}

func sessionFor(client *Client, pair tokens.Pair) (*Session, tokens.Provider) {
	provider := tokens.Scoped(tokens.NewMemoryStore(), "s1")
	if pair.HasAccess() || pair.HasRefresh() {
		_ = provider.Set(context.Background(), pair)
	}
	return client.ForSession(provider), provider
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestProductDecodesDetail(t *testing.T) {
	client, backend, _ := newTestClient(t)
	price := decimal.RequireFromString("1990")
	backend.AddProduct(models.Product{
		ID:       "7",
		Name:     "Плед",
		Variants: []models.Variant{{ID: "70", Price: &price}},
	})

	product, err := client.Product(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Плед", product.Name)
	require.Len(t, product.Variants, 1)
	assert.True(t, product.Variants[0].Price.Equal(price))
}

func TestProductMapsStatusToCode(t *testing.T) {
	client, backend, _ := newTestClient(t)

	_, err := client.Product(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, http.StatusNotFound, pkgerrors.UpstreamStatusOf(err))

	backend.Fail("GET /catalog/products-with-variants/", http.StatusBadGateway)
	_, err = client.ProductsWithVariants(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, http.StatusBadGateway, pkgerrors.Dump(err).UpstreamStatus)

	_, err = client.Product(context.Background(), "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, pkgerrors.UpstreamStatusOf(err))
}

func TestLookupLists(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.SetLookups(
		[]models.Named{{ID: "1", Name: "Постельное"}},
		[]models.Named{{ID: "2", Name: "Евро", Category: "1"}},
		[]models.Named{{ID: "3", Name: "2-сп"}},
		[]models.Named{{ID: "4", Name: "Сатин"}},
	)
	ctx := context.Background()

	categories, err := client.Categories(ctx)
	require.NoError(t, err)
	subcategories, err := client.Subcategories(ctx)
	require.NoError(t, err)
	sizes, err := client.Sizes(ctx)
	require.NoError(t, err)
	fabrics, err := client.Fabrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Постельное", categories[0].Name)
	assert.True(t, subcategories[0].Category.Equal("1"))
	assert.Equal(t, "2-сп", sizes[0].Name)
	assert.Equal(t, "Сатин", fabrics[0].Name)
}

func TestLoginAndRegister(t *testing.T) {
	client, backend, _ := newTestClient(t)
	backend.AddUser("a@example.com", "secret")
	ctx := context.Background()

	resp, err := client.Login(ctx, models.LoginRequest{Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, resp.Tokens.HasAccess())
	assert.True(t, resp.Tokens.HasRefresh())

	_, err = client.Login(ctx, models.LoginRequest{Email: "a@example.com", Password: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	reg, err := client.Register(ctx, models.RegisterRequest{Email: "b@example.com", Password: "pw", PasswordConfirm: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", reg.Email)
}

func TestRefreshKeepsPresentedRefreshToken(t *testing.T) {
	client, backend, _ := newTestClient(t)
	pair := backend.Issue("a@example.com")

	refreshed, err := client.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, refreshed.Access)
	assert.Equal(t, pair.Refresh, refreshed.Refresh)
}

func TestSessionWithoutCredentialMakesNoCall(t *testing.T) {
	client, backend, _ := newTestClient(t)
	session, _ := sessionFor(client, tokens.Pair{})

	_, err := session.Cart(context.Background())
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Empty(t, backend.CallKeys())
	assert.False(t, session.Authenticated(context.Background()))
}

func TestSessionRefreshesOnceAfterUnauthorized(t *testing.T) {
	client, backend, pauses := newTestClient(t)
	pair := backend.Issue("a@example.com")
	backend.SeedLine("70", 2)
	backend.ExpireAccess(pair.Access)
	session, provider := sessionFor(client, pair)

	cart, err := session.Cart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, *cart.Items[0].Quantity)

	assert.Equal(t, 2, backend.Calls("GET /cart/"))
	assert.Equal(t, 1, backend.Calls("POST /users/refresh/"))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *pauses)

	stored, ok, err := provider.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, pair.Access, stored.Access)
	assert.Equal(t, pair.Refresh, stored.Refresh)
}

func TestSessionRefreshesExpiredAccessBeforeCalling(t *testing.T) {
	client, backend, pauses := newTestClient(t)
	pair := backend.IssueExpired("a@example.com")
	backend.SeedLine("70", 2)
	session, provider := sessionFor(client, pair)
	ctx := context.Background()

	require.False(t, pair.AccessUsable(time.Now()))
	assert.True(t, session.Authenticated(ctx))

	cart, err := session.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, *cart.Items[0].Quantity)

	assert.Equal(t, 1, backend.Calls("GET /cart/"))
	assert.Equal(t, 1, backend.Calls("POST /users/refresh/"))
	assert.Empty(t, *pauses)

	stored, ok, err := provider.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.AccessUsable(time.Now()))
	assert.Equal(t, pair.Refresh, stored.Refresh)
}

func TestSessionExpiredAccessWithRevokedRefreshSignsOut(t *testing.T) {
	client, backend, _ := newTestClient(t)
	pair := backend.IssueExpired("a@example.com")
	backend.RevokeRefresh(pair.Refresh)
	session, provider := sessionFor(client, pair)

	_, err := session.Cart(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Zero(t, backend.Calls("GET /cart/"))

	_, ok, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, session.Authenticated(context.Background()))
}

func TestSessionExpiredAccessWithoutRefreshMakesNoCall(t *testing.T) {
	client, backend, _ := newTestClient(t)
	pair := backend.IssueExpired("a@example.com")
	pair.Refresh = ""
	session, _ := sessionFor(client, pair)

	assert.False(t, session.Authenticated(context.Background()))
	_, err := session.Cart(context.Background())
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Empty(t, backend.CallKeys())
}

func TestSessionFailedRefreshClearsTokens(t *testing.T) {
	client, backend, _ := newTestClient(t)
	pair := backend.Issue("a@example.com")
	backend.ExpireAccess(pair.Access)
	backend.RevokeRefresh(pair.Refresh)
	session, provider := sessionFor(client, pair)

	err := session.AddToCart(context.Background(), "70", 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, ok, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, backend.Calls("POST /cart/add/"))
}

func TestSessionRetryStillUnauthorizedDoesNotLoop(t *testing.T) {
	client, backend, _ := newTestClient(t)
	pair := backend.Issue("a@example.com")
	backend.Fail("GET /cart/", http.StatusUnauthorized)
	session, _ := sessionFor(client, pair)

	_, err := session.Cart(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, backend.Calls("GET /cart/"))
	assert.Equal(t, 1, backend.Calls("POST /users/refresh/"))
}

func TestSessionCartMutations(t *testing.T) {
	client, backend, _ := newTestClient(t)
	price := decimal.RequireFromString("100")
	backend.AddProduct(models.Product{
		ID:       "7",
		Variants: []models.Variant{{ID: "70", Price: &price}, {ID: "71", Price: &price}},
	})
	session, _ := sessionFor(client, backend.Issue("a@example.com"))
	ctx := context.Background()

	require.NoError(t, session.AddToCart(ctx, "70", 1))
	require.NoError(t, session.AddToCart(ctx, types.NormalizeID(70), 2))
	require.NoError(t, session.AddToCart(ctx, "71", 1))
	assert.Equal(t, map[types.ID]int{"70": 3, "71": 1}, backend.Quantities())

	cart, err := session.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	first, second := cart.Items[0].ID, cart.Items[1].ID

	require.NoError(t, session.UpdateCartItem(ctx, first, 5))
	require.NoError(t, session.RemoveCartItem(ctx, second))
	assert.Equal(t, map[types.ID]int{"70": 5}, backend.Quantities())

	require.NoError(t, session.ClearCart(ctx))
	assert.Empty(t, backend.Quantities())
}

func TestSessionMe(t *testing.T) {
	client, backend, _ := newTestClient(t)
	session, _ := sessionFor(client, backend.Issue("a@example.com"))

	profile, err := session.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", profile.Email)
	assert.True(t, session.Authenticated(context.Background()))
}
