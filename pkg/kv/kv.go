// Package kv provides a small string key-value store abstraction for
// client-side persisted checkout state (cached address lists, the payment
// idempotency token). Implementations must tolerate missing keys; callers
// treat the store as a cache, never as the source of truth.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string key-value store with get/set/delete by key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
