// Package address manages the checkout address book: the working list, the
// selected destination, and a device-local cache keyed by customer id.
package address

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for address operations.
var (
	// ErrSignInRequired is returned when a mutation needs an authenticated
	// customer id and none is present.
	ErrSignInRequired = errors.New("please sign in to manage addresses")
)

// Address is a shipping destination record. Addresses are never hard-deleted
// here; deletion is delegated to the external address service.
type Address struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
	Detail   string `json:"detail"`
	Default  bool   `json:"default"`
}

// Input is the add/edit form payload. Validation runs locally before any
// remote call; invalid input never reaches the address service.
type Input struct {
	Name     string `json:"name" validate:"required,max=64"`
	Phone    string `json:"phone" validate:"required,min=5,max=20"`
	Province string `json:"province" validate:"required"`
	City     string `json:"city" validate:"required"`
	District string `json:"district" validate:"omitempty,max=64"`
	Detail   string `json:"detail" validate:"required,max=200"`
	Default  bool   `json:"default"`
}

// MutationResult is the address service response to add/set-default calls:
// the authoritative list plus the record the call touched.
type MutationResult struct {
	Addresses []Address
	Touched   *Address
}

// Service is the remote address service boundary.
type Service interface {
	AddAddress(ctx context.Context, customerID string, in Input) (*MutationResult, error)
	SetDefaultAddress(ctx context.Context, customerID, addressID string) (*MutationResult, error)
}
