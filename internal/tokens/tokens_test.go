package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakitny/storefront/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestAccessUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Pair{}.AccessUsable(now), "missing token is not usable")
	assert.True(t, Pair{Access: "opaque"}.AccessUsable(now), "opaque tokens pass on presence")
	assert.True(t, Pair{Access: signed(t, now.Add(time.Minute))}.AccessUsable(now))
	assert.False(t, Pair{Access: signed(t, now.Add(-time.Minute))}.AccessUsable(now))
}

func TestMemoryStoreScopedProvider(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := Scoped(store, "a")
	b := Scoped(store, "b")

	_, ok, err := a.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, Pair{Access: "acc", Refresh: "ref"}))
	pair, ok, err := a.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{Access: "acc", Refresh: "ref"}, pair)

	_, ok, _ = b.Get(ctx)
	assert.False(t, ok, "sessions must not see each other's tokens")

	require.NoError(t, a.Set(ctx, Pair{Access: "acc2"}))
	pair, _, _ = a.Get(ctx)
	assert.Equal(t, "ref", pair.Refresh, "refresh survives an access-only update")

	require.NoError(t, a.Clear(ctx))
	_, ok, _ = a.Get(ctx)
	assert.False(t, ok)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := redis.NewWithCmdable(newFakeRedis())
	store, err := NewRedisStore(client, time.Hour)
	require.NoError(t, err)

	provider := Scoped(store, "sess")
	_, ok, err := provider.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, provider.Set(ctx, Pair{Access: "acc", Refresh: "ref"}))
	require.NoError(t, provider.Set(ctx, Pair{Access: "acc2"}))
	pair, ok, err := provider.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{Access: "acc2", Refresh: "ref"}, pair)

	require.NoError(t, provider.Clear(ctx))
	_, ok, _ = provider.Get(ctx)
	assert.False(t, ok)
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	_, err := NewRedisStore(nil, time.Hour)
	assert.Error(t, err)
}

type fakeRedis struct {
	data map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.data[key] = value.(string)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) MGet(_ context.Context, keys ...string) *goredis.SliceCmd {
	out := make([]any, len(keys))
	for i, k := range keys {
		if v, ok := f.data[k]; ok {
			out[i] = v
		}
	}
	return goredis.NewSliceResult(out, nil)
}

func (f *fakeRedis) Expire(context.Context, string, time.Duration) *goredis.BoolCmd {
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}
