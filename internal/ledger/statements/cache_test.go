package statements

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

type cachedPayload struct {
	Value string `json:"value"`
}

func TestCacheFetchJSONPopulatesAndHits(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return cachedPayload{Value: "fresh"}, nil
	}

	var out cachedPayload
	require.NoError(t, cache.FetchJSON(ctx, "statements:bs:1", &out, loader))
	assert.Equal(t, "fresh", out.Value)
	assert.Equal(t, 1, calls)

	var again cachedPayload
	require.NoError(t, cache.FetchJSON(ctx, "statements:bs:1", &again, loader))
	assert.Equal(t, "fresh", again.Value)
	assert.Equal(t, 1, calls, "second fetch must come from the cache")
}

func TestCacheBumpRotatesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	first, err := cache.BuildKey(ctx, "statements", "bs", "7")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	second, err := cache.BuildKey(ctx, "statements", "bs", "7")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Populate under the old key and confirm the new key misses.
	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return cachedPayload{Value: "v"}, nil
	}
	var out cachedPayload
	require.NoError(t, cache.FetchJSON(ctx, first, &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, second, &out, loader))
	assert.Equal(t, 2, calls)
}

func TestCacheVersionInitialisesOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	ver, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)

	require.NoError(t, cache.Bump(ctx))
	ver, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)
}

func TestCacheNilClientCallsLoader(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return cachedPayload{Value: "direct"}, nil
	}

	var out cachedPayload
	for i := 0; i < 2; i++ {
		require.NoError(t, cache.FetchJSON(ctx, "any", &out, loader))
	}
	assert.Equal(t, "direct", out.Value)
	assert.Equal(t, 2, calls)

	assert.NoError(t, cache.Bump(ctx))
	key, err := cache.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a:b", key)
}

func TestCacheEntryExpires(t *testing.T) {
	cache, srv := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return cachedPayload{Value: "ttl"}, nil
	}

	var out cachedPayload
	require.NoError(t, cache.FetchJSON(ctx, "statements:cf:1", &out, loader))
	srv.FastForward(2 * time.Minute)
	require.NoError(t, cache.FetchJSON(ctx, "statements:cf:1", &out, loader))
	assert.Equal(t, 2, calls)
}
