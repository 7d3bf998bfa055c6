// Package payment drives the two-phase (scan then confirm) payment
// handshake: a small state machine over a static payment code, an
// idempotent confirm-and-notify call, and a delayed auto-navigation on
// success.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Step is the payment flow state.
type Step string

const (
	// StepIdle means no payment flow is open.
	StepIdle Step = "idle"
	// StepAwaitingScan presents the static payment code.
	StepAwaitingScan Step = "awaiting-scan"
	// StepHelp shows payment help; returns to awaiting-scan.
	StepHelp Step = "help"
	// StepSuccess means the order was confirmed; navigation is pending.
	StepSuccess Step = "success"
)

// Sentinel errors for flow transitions.
var (
	// ErrNotReady is returned by Open when the checkout selection is
	// incomplete (empty cart or missing address/shipping/payment).
	ErrNotReady = errors.New("checkout selection incomplete")
	// ErrNotAwaitingScan is returned by Confirm outside awaiting-scan.
	ErrNotAwaitingScan = errors.New("no payment awaiting confirmation")
)

// idempotencyTokenKey is the device-storage key for the confirm token.
const idempotencyTokenKey = "qr_pay_idemp"

// DeviceContext describes the submitting device, forwarded to the order
// service for reconciliation.
type DeviceContext struct {
	Platform  string
	UserAgent string
	RemoteIP  string
}

// ConfirmRequest is the confirm-and-notify submission.
type ConfirmRequest struct {
	CustomerID       string
	AddressID        string
	ShippingMethodID string
	PaymentMethodID  string
	Payable          decimal.Decimal
	Currency         string
	PointsApplied    int64
	IdempotencyKey   string
	Device           DeviceContext
}

// Confirmation is the order service's response to a successful confirm.
type Confirmation struct {
	OrderID    string
	ResultURL  string
	PaidAmount decimal.Decimal
	Currency   string
}

// OrderService is the remote order-creation boundary. Submissions carrying
// the same idempotency key must resolve to the same order.
type OrderService interface {
	ConfirmAndNotify(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
}
