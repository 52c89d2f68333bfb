package cache

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fetch wraps a read operation with the cache. On a hit the stored payload
// is deserialized and returned without invoking fetch; the hit flag lets
// callers mark the response as served-from-cache. On a miss (or any cache
// failure, which is deliberately indistinguishable from a miss) fetch runs,
// and only a successful result is stored under key with the given TTL.
//
// Errors from the cache collaborator never surface to the caller: the worst
// a broken cache can do is make every request a miss.
func Fetch[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, bool, error) {
	var zero T

	getCtx, cancel := context.WithTimeout(ctx, opTimeout)
	raw, err := store.Get(getCtx, key)
	cancel()

	switch {
	case err == nil:
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			Hits.Inc()
			return value, true, nil
		}
		// A payload we can no longer decode counts as a miss; the fresh
		// result below overwrites it.
		Errors.WithLabelValues("get").Inc()
	case !errors.Is(err, ErrMiss):
		Errors.WithLabelValues("get").Inc()
	}
	Misses.Inc()

	value, err := fetch(ctx)
	if err != nil {
		return zero, false, err
	}

	if raw, err := json.Marshal(value); err == nil {
		setCtx, cancel := context.WithTimeout(ctx, opTimeout)
		if err := store.Set(setCtx, key, raw, ttl); err != nil {
			Errors.WithLabelValues("set").Inc()
		}
		cancel()
	}

	return value, false, nil
}

// Invalidate removes the given keys, best effort.
func Invalidate(ctx context.Context, store Store, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := store.Del(ctx, keys...); err != nil {
		Errors.WithLabelValues("delete").Inc()
	}
}

// InvalidatePrefix enumerates and removes every key under prefix, best
// effort. If the sweep itself fails the affected entries simply age out
// via their TTL, so staleness is bounded even in the failure case.
func InvalidatePrefix(ctx context.Context, store Store, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		Errors.WithLabelValues("keys").Inc()
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := store.Del(ctx, keys...); err != nil {
		Errors.WithLabelValues("delete").Inc()
	}
}
