package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_QueryKey_Deterministic(t *testing.T) {
	a := QueryKey("list", map[string]string{"page": "1", "limit": "20", "sort": "-created_at"})
	b := QueryKey("list", map[string]string{"sort": "-created_at", "limit": "20", "page": "1"})

	assert.Equal(t, a, b)
	assert.Equal(t, "books:q:list:limit=20:page=1:sort=-created_at", a)
}

func Test_QueryKey_DistinguishesParams(t *testing.T) {
	a := QueryKey("list", map[string]string{"page": "1"})
	b := QueryKey("list", map[string]string{"page": "2"})
	c := QueryKey("stats", map[string]string{"page": "1"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func Test_QueryKey_SeparatorsInValuesCannotForgeParams(t *testing.T) {
	// A value containing the key separators must not read as an extra
	// parameter: one search term versus two real parameters are different
	// parameter sets and need different entries.
	a := QueryKey("list", map[string]string{"search": "x:module_type=PERSONAL"})
	b := QueryKey("list", map[string]string{"search": "x", "module_type": "PERSONAL"})

	assert.NotEqual(t, a, b)
}

func Test_QueryKey_NoParams(t *testing.T) {
	assert.Equal(t, "books:q:stats", QueryKey("stats", nil))
}

func Test_ItemKey(t *testing.T) {
	assert.Equal(t, "books:id:abc-123", ItemKey("abc-123"))
}

func Test_MemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw)

	require.NoError(t, store.Del(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func Test_MemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func Test_MemoryStore_KeysByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "books:q:list:page=1", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "books:q:stats", []byte("b"), time.Minute))
	require.NoError(t, store.Set(ctx, "books:id:1", []byte("c"), time.Minute))

	keys, err := store.Keys(ctx, QueryPrefix)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"books:q:list:page=1", "books:q:stats"}, keys)
}

type payload struct {
	Name string `json:"name"`
}

func Test_Fetch_MissThenHit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "Trip Fund"}, nil
	}

	got, hit, err := Fetch(ctx, store, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Trip Fund", got.Name)
	assert.Equal(t, 1, calls)

	got, hit, err = Fetch(ctx, store, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Trip Fund", got.Name)
	assert.Equal(t, 1, calls, "hit must not invoke fetch again")
}

func Test_Fetch_FetchErrorNotCached(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	boom := errors.New("storage down")
	_, hit, err := Fetch(ctx, store, "k", time.Minute, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hit)

	// Nothing was stored, so the next call with a working fetch runs it.
	calls := 0
	_, hit, err = Fetch(ctx, store, "k", time.Minute, func(context.Context) (payload, error) {
		calls++
		return payload{Name: "ok"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, calls)
}

// brokenStore fails every operation, standing in for an unreachable Redis.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Del(context.Context, ...string) error {
	return errors.New("connection refused")
}

func (brokenStore) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("connection refused")
}

func Test_Fetch_BrokenStoreDegradesToMiss(t *testing.T) {
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "Trip Fund"}, nil
	}

	for i := 0; i < 2; i++ {
		got, hit, err := Fetch(ctx, brokenStore{}, "k", time.Minute, fetch)
		require.NoError(t, err, "cache failures must never surface")
		assert.False(t, hit)
		assert.Equal(t, "Trip Fund", got.Name)
	}
	assert.Equal(t, 2, calls)
}

func Test_Fetch_CorruptPayloadTreatedAsMiss(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("{not json"), time.Minute))

	got, hit, err := Fetch(ctx, store, "k", time.Minute, func(context.Context) (payload, error) {
		return payload{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", got.Name)

	// The fresh result replaced the corrupt entry.
	raw, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"fresh"}`, string(raw))
}

func Test_Invalidate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ItemKey("1"), []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, ItemKey("2"), []byte("b"), time.Minute))

	Invalidate(ctx, store, ItemKey("1"))

	_, err := store.Get(ctx, ItemKey("1"))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, ItemKey("2"))
	assert.NoError(t, err)
}

func Test_InvalidatePrefix_SweepsOnlyMatching(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "books:q:list:page=1", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "books:q:stats", []byte("b"), time.Minute))
	require.NoError(t, store.Set(ctx, ItemKey("1"), []byte("c"), time.Minute))

	InvalidatePrefix(ctx, store, QueryPrefix)

	_, err := store.Get(ctx, "books:q:list:page=1")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, "books:q:stats")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, ItemKey("1"))
	assert.NoError(t, err, "item entries survive a derived-read sweep")
}
