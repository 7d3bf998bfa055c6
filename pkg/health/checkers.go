package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-checkout/pkg/kv"
)

// GoroutineCountCheck returns a CheckFunc that reports unhealthy when the
// number of goroutines exceeds the given threshold. This is useful as a
// liveness check to detect goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// KVStoreCheck returns a CheckFunc that verifies the key-value store answers
// a round trip. Useful as a readiness check when checkout state is cached in
// an external store.
func KVStoreCheck(store kv.Store) CheckFunc {
	const key = "healthcheck"
	return func(ctx context.Context) error {
		if err := store.Set(ctx, key, "ok"); err != nil {
			return errors.Wrap(err, "kv set")
		}
		if _, err := store.Get(ctx, key); err != nil {
			return errors.Wrap(err, "kv get")
		}
		return nil
	}
}

// GCMaxPauseCheck returns a CheckFunc that reports unhealthy when the maximum
// GC pause (stop-the-world) duration exceeds the given threshold. This is
// useful as a liveness check to detect memory pressure or excessively large
// heaps causing long GC pauses.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		for _, pause := range stats.Pause {
			if pause > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, threshold)
			}
		}
		return nil
	}
}
