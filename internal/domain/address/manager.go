package address

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/pkg/kv"
)

const cacheKeyPrefix = "checkout_addresses_"

// Manager holds the address working set for one customer. Not safe for
// concurrent use; the owning session serializes access.
type Manager struct {
	svc        Service
	store      kv.Store
	validate   *validator.Validate
	lg         *zap.Logger
	customerID string

	addresses  []Address
	selectedID string
}

// NewManager creates a Manager for the given customer. customerID may be
// empty for guest sessions; mutations then fail with ErrSignInRequired.
func NewManager(svc Service, store kv.Store, lg *zap.Logger, customerID string) *Manager {
	return &Manager{
		svc:        svc,
		store:      store,
		validate:   validator.New(),
		lg:         lg.Named("address"),
		customerID: customerID,
	}
}

func (m *Manager) cacheKey() string {
	return cacheKeyPrefix + m.customerID
}

// Load populates the working set from the device-local cache, so a list is
// available before the server responds. The cache is never authoritative: a
// later Refresh with server data wins.
func (m *Manager) Load(ctx context.Context) {
	if m.customerID == "" {
		return
	}
	raw, err := m.store.Get(ctx, m.cacheKey())
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			m.lg.Warn("address cache read failed", zap.Error(err))
		}
		return
	}

	var cached []Address
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		m.lg.Warn("address cache corrupt, ignoring", zap.Error(err))
		return
	}
	m.replaceList(ctx, cached, false)
}

// Refresh replaces the working set with the server-provided list, merging in
// any cached-only entries by id (server entries win), and re-caches the
// result.
func (m *Manager) Refresh(ctx context.Context, serverList []Address) {
	seen := make(map[string]struct{}, len(serverList))
	merged := make([]Address, 0, len(serverList)+len(m.addresses))
	for _, a := range serverList {
		merged = append(merged, a)
		seen[a.ID] = struct{}{}
	}
	for _, a := range m.addresses {
		if _, ok := seen[a.ID]; !ok {
			a.Default = false
			merged = append(merged, a)
		}
	}
	m.replaceList(ctx, merged, true)
}

// Add validates the input locally, then delegates to the address service and
// adopts the returned list. The new address becomes the selection.
func (m *Manager) Add(ctx context.Context, in Input) (*Address, error) {
	if m.customerID == "" {
		return nil, ErrSignInRequired
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, errors.Wrap(err, "validate address")
	}

	res, err := m.svc.AddAddress(ctx, m.customerID, in)
	if err != nil {
		return nil, err
	}

	m.replaceList(ctx, res.Addresses, true)
	if res.Touched != nil {
		m.selectedID = res.Touched.ID
	}
	return res.Touched, nil
}

// SetDefault marks the given address as the customer's default via the
// address service and adopts the returned list.
func (m *Manager) SetDefault(ctx context.Context, addressID string) error {
	if m.customerID == "" {
		return ErrSignInRequired
	}

	res, err := m.svc.SetDefaultAddress(ctx, m.customerID, addressID)
	if err != nil {
		return err
	}
	m.replaceList(ctx, res.Addresses, true)
	return nil
}

// Select picks the shipping destination. An unknown id falls back to the
// default address, then the first entry, then none.
func (m *Manager) Select(id string) {
	m.selectedID = m.reconcile(id)
}

// Selected returns the currently selected address, or nil.
func (m *Manager) Selected() *Address {
	for i := range m.addresses {
		if m.addresses[i].ID == m.selectedID {
			return &m.addresses[i]
		}
	}
	return nil
}

// List returns the working set.
func (m *Manager) List() []Address {
	return m.addresses
}

// replaceList installs the new list, restores the exactly-one-default
// invariant, re-validates the selection, and optionally writes the cache.
func (m *Manager) replaceList(ctx context.Context, list []Address, persist bool) {
	m.addresses = normalizeDefault(list)
	m.selectedID = m.reconcile(m.selectedID)

	if !persist || m.customerID == "" {
		return
	}
	raw, err := json.Marshal(m.addresses)
	if err != nil {
		m.lg.Warn("address cache encode failed", zap.Error(err))
		return
	}
	if err := m.store.Set(ctx, m.cacheKey(), string(raw)); err != nil {
		m.lg.Warn("address cache write failed", zap.Error(err))
	}
}

func (m *Manager) reconcile(id string) string {
	for _, a := range m.addresses {
		if a.ID == id {
			return id
		}
	}
	for _, a := range m.addresses {
		if a.Default {
			return a.ID
		}
	}
	if len(m.addresses) > 0 {
		return m.addresses[0].ID
	}
	return ""
}

// normalizeDefault keeps at most one default flag: the first flagged entry
// wins, every later flag is cleared.
func normalizeDefault(list []Address) []Address {
	out := make([]Address, len(list))
	copy(out, list)

	found := false
	for i := range out {
		if !out[i].Default {
			continue
		}
		if found {
			out[i].Default = false
			continue
		}
		found = true
	}
	return out
}
