package kv

import "context"

// Prefixed is a Store view that namespaces every key under a fixed prefix.
// Per-device state (such as the payment idempotency token) lives in a
// Prefixed view so values from different devices never collide in a shared
// backend.
type Prefixed struct {
	store  Store
	prefix string
}

var _ Store = (*Prefixed)(nil)

// NewPrefixed wraps store so every key reads and writes prefix + key.
func NewPrefixed(store Store, prefix string) *Prefixed {
	return &Prefixed{store: store, prefix: prefix}
}

// Get returns the value for prefix + key, or ErrNotFound.
func (p *Prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.store.Get(ctx, p.prefix+key)
}

// Set stores value under prefix + key.
func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

// Delete removes prefix + key. Keys outside the view are untouched.
func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.store.Delete(ctx, p.prefix+key)
}
