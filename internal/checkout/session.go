// Package checkout wires the selection, address, coupon, points, and
// payment coordinators into a single checkout session and owns the derived
// payable amount.
package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/points"
	"github.com/xenking/storefront-checkout/internal/domain/selection"
	"github.com/xenking/storefront-checkout/pkg/kv"
)

// ErrEditingLocked is returned for any mutation attempted while the payment
// flow is open. The payable amount must not change between code display and
// confirmation.
var ErrEditingLocked = errors.New("checkout is locked while payment is in progress")

// Gateway is the full remote service boundary a session depends on.
type Gateway interface {
	address.Service
	coupon.CartService
	payment.OrderService
}

// Params configures a new session.
type Params struct {
	CustomerID     string
	LoyaltyBalance int64
	Selected       cart.SelectionSet
	Device         payment.DeviceContext
	// DeviceKey scopes device-local state (the payment idempotency token)
	// in the shared store. A device that reattaches with the same key keeps
	// its token; when empty, a fresh key is generated and the session's
	// state is private to it.
	DeviceKey string
	// Navigate is invoked with the result URL after a successful payment,
	// unless the flow is closed first. Optional.
	Navigate func(resultURL string)
}

// Session is one customer's checkout pass. All exported methods are safe
// for concurrent use; a single mutex serializes them, matching the
// single-threaded event model of the flow.
type Session struct {
	mu         sync.Mutex
	lg         *zap.Logger
	customerID string
	device     payment.DeviceContext

	selection *selection.Coordinator
	addresses *address.Manager
	coupons   *coupon.Coordinator
	points    *points.Coordinator
	flow      *payment.Flow
}

// NewSession creates a fully wired session.
func NewSession(gw Gateway, store kv.Store, lg *zap.Logger, p Params) *Session {
	s := &Session{
		lg:         lg.Named("checkout"),
		customerID: p.CustomerID,
		device:     p.Device,
		selection:  selection.NewCoordinator(p.Selected),
		addresses:  address.NewManager(gw, store, lg, p.CustomerID),
		coupons:    coupon.NewCoordinator(gw, p.CustomerID),
		points:     points.NewCoordinator(p.LoyaltyBalance),
	}
	deviceKey := p.DeviceKey
	if deviceKey == "" {
		deviceKey = uuid.NewString()
	}
	// The ready guard runs only from flow.Open, which this session always
	// invokes with s.mu held, so it must not lock again. The flow's store
	// view is scoped per device: idempotency tokens must never be shared
	// across checkout sessions.
	s.flow = payment.NewFlow(gw, kv.NewPrefixed(store, deviceKey+":"), lg, s.canPayLocked, p.Navigate)
	return s
}

// Load primes device-local caches (the address list).
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses.Load(ctx)
}

// --- cart & selection -------------------------------------------------

// SetCart replaces the working cart with the filtered view of the upstream
// cart. Committed points are reset: redemption is re-validated against the
// new cart, never carried over.
func (s *Session) SetCart(c cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SetCart(c)
	s.points.Reset()
	return nil
}

// SetSelectionSet replaces the merchandise selection. The working cart is
// re-filtered on the next SetCart; points are reset because the selection
// changed.
func (s *Session) SetSelectionSet(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SetSelection(cart.NewSelectionSet(ids...))
	s.points.Reset()
	return nil
}

// SetShippingMethods installs the shipping method list, reconciling a stale
// selection, and re-clamps points against the new shipping fee.
func (s *Session) SetShippingMethods(ms []selection.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SetShippingMethods(ms)
	s.clampPoints()
	return nil
}

// SetPaymentMethods installs the payment method list.
func (s *Session) SetPaymentMethods(ms []selection.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SetPaymentMethods(ms)
	return nil
}

// SelectShipping picks a shipping method and re-clamps points.
func (s *Session) SelectShipping(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SelectShipping(id)
	s.clampPoints()
	return nil
}

// SelectPayment picks a payment method.
func (s *Session) SelectPayment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.selection.SelectPayment(id)
	return nil
}

// Cart returns the current working cart.
func (s *Session) Cart() *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Cart()
}

// ShippingID returns the selected shipping method id.
func (s *Session) ShippingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.ShippingID()
}

// PaymentID returns the selected payment method id.
func (s *Session) PaymentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.PaymentID()
}

// --- addresses --------------------------------------------------------

// RefreshAddresses adopts the server-provided address list.
func (s *Session) RefreshAddresses(ctx context.Context, list []address.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.addresses.Refresh(ctx, list)
	return nil
}

// AddAddress validates and saves a new address.
func (s *Session) AddAddress(ctx context.Context, in address.Input) (*address.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return nil, ErrEditingLocked
	}
	return s.addresses.Add(ctx, in)
}

// SetDefaultAddress marks an address as the default.
func (s *Session) SetDefaultAddress(ctx context.Context, addressID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	return s.addresses.SetDefault(ctx, addressID)
}

// SelectAddress picks the shipping destination.
func (s *Session) SelectAddress(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.addresses.Select(id)
	return nil
}

// Addresses returns the address working set.
func (s *Session) Addresses() []address.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses.List()
}

// SelectedAddress returns the selected address, or nil.
func (s *Session) SelectedAddress() *address.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses.Selected()
}

// --- coupons ----------------------------------------------------------

// SetAvailableCoupons installs the wallet, dropping inactive coupons.
func (s *Session) SetAvailableCoupons(list []coupon.Coupon) {
	s.coupons.SetAvailable(list)
}

// AvailableCoupons returns the currently usable wallet.
func (s *Session) AvailableCoupons() []coupon.Coupon {
	return s.coupons.Available()
}

// AppliedCouponCodes returns the lowercase codes applied to the cart.
func (s *Session) AppliedCouponCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return coupon.AppliedCodes(s.selection.Cart())
}

// ApplyCoupon sends the code to the cart service and adopts the returned
// cart (filtered by the current selection). Points are re-clamped: a new
// discount may shrink the pre-points payable below the committed amount.
func (s *Session) ApplyCoupon(ctx context.Context, code string) error {
	return s.couponOp(ctx, code, s.coupons.Apply)
}

// RemoveCoupon is symmetric to ApplyCoupon.
func (s *Session) RemoveCoupon(ctx context.Context, code string) error {
	return s.couponOp(ctx, code, s.coupons.Remove)
}

func (s *Session) couponOp(
	ctx context.Context,
	code string,
	op func(context.Context, string) (*cart.Cart, error),
) error {
	s.mu.Lock()
	if s.flow.Locked() {
		s.mu.Unlock()
		return ErrEditingLocked
	}
	s.mu.Unlock()

	// The remote call runs outside the session lock so independent
	// operations (e.g. address edits) stay responsive while it is in
	// flight; the coupon coordinator's per-code single flight prevents
	// duplicate submissions of the same code.
	updated, err := op(ctx, code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow.Locked() {
		// Payment opened while the request was in flight; discard.
		return ErrEditingLocked
	}
	if updated != nil {
		s.selection.SetCart(*updated)
		s.clampPoints()
	}
	return nil
}

// RedeemCoupon adds a coupon to the customer's wallet.
func (s *Session) RedeemCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	s.mu.Lock()
	if s.flow.Locked() {
		s.mu.Unlock()
		return nil, ErrEditingLocked
	}
	s.mu.Unlock()

	return s.coupons.Redeem(ctx, code)
}

// CouponProcessing reports whether an apply/remove for code is in flight.
func (s *Session) CouponProcessing(code string) bool {
	return s.coupons.IsProcessing(code)
}

// --- points -----------------------------------------------------------

// SetPointsInput stores the raw points input without committing it.
func (s *Session) SetPointsInput(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.points.SetInput(raw)
	return nil
}

// ApplyPointsInput parses and commits the stored points input.
func (s *Session) ApplyPointsInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	return s.points.ApplyInput(s.maxRedeemableLocked())
}

// ApplyMaxPoints commits the full redeemable maximum.
func (s *Session) ApplyMaxPoints() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.points.ApplyMax(s.maxRedeemableLocked())
	return nil
}

// ResetPoints clears the committed points and the input.
func (s *Session) ResetPoints() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Locked() {
		return ErrEditingLocked
	}
	s.points.Reset()
	return nil
}

// PointsApplied returns the committed point amount.
func (s *Session) PointsApplied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points.Applied()
}

// MaxRedeemablePoints returns min(balance, payableBeforePoints).
func (s *Session) MaxRedeemablePoints() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRedeemableLocked()
}

func (s *Session) maxRedeemableLocked() int64 {
	return s.points.MaxRedeemable(s.payableBeforePointsLocked())
}

func (s *Session) clampPoints() {
	s.points.Clamp(s.maxRedeemableLocked())
}

// --- derived amounts --------------------------------------------------

// Totals is a snapshot of every derived cost figure.
type Totals struct {
	ItemsSubtotal       decimal.Decimal
	CouponsTotal        decimal.Decimal
	ShippingFee         decimal.Decimal
	PayableBeforePoints decimal.Decimal
	PointsApplied       int64
	Payable             decimal.Decimal
	Currency            string
}

// Totals recomputes the full derived snapshot from committed state.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.payableBeforePointsLocked()
	return Totals{
		ItemsSubtotal:       s.selection.ItemsSubtotal(),
		CouponsTotal:        s.selection.CouponsTotal(),
		ShippingFee:         s.selection.ShippingFee(),
		PayableBeforePoints: before,
		PointsApplied:       s.points.Applied(),
		Payable:             s.payableLocked(before),
		Currency:            s.selection.Currency(),
	}
}

// PayableBeforePoints returns max(itemsSubtotal - couponsTotal +
// shippingFee, 0).
func (s *Session) PayableBeforePoints() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payableBeforePointsLocked()
}

// Payable returns max(payableBeforePoints - pointsApplied, 0), the final
// amount the customer must pay.
func (s *Session) Payable() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payableLocked(s.payableBeforePointsLocked())
}

func (s *Session) payableBeforePointsLocked() decimal.Decimal {
	v := s.selection.ItemsSubtotal().
		Sub(s.selection.CouponsTotal()).
		Add(s.selection.ShippingFee())
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func (s *Session) payableLocked(before decimal.Decimal) decimal.Decimal {
	v := before.Sub(decimal.NewFromInt(s.points.Applied()))
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// --- payment ----------------------------------------------------------

// CanPay reports whether payment may proceed: a non-empty cart plus a
// selected address, shipping method, and payment method.
func (s *Session) CanPay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canPayLocked()
}

func (s *Session) canPayLocked() bool {
	return !s.selection.CartIsEmpty() &&
		s.addresses.Selected() != nil &&
		s.selection.ShippingID() != "" &&
		s.selection.PaymentID() != ""
}

// OpenPayment moves the flow to awaiting-scan. A no-op returning
// payment.ErrNotReady when the selection is incomplete.
func (s *Session) OpenPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow.Open()
}

// RequestPaymentHelp shows the help screen.
func (s *Session) RequestPaymentHelp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.RequestHelp()
}

// BackToScan returns from help to the payment code.
func (s *Session) BackToScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.BackToScan()
}

// ClosePayment closes the flow and cancels any pending navigation.
func (s *Session) ClosePayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flow.Close()
}

// PaymentStep returns the current flow step.
func (s *Session) PaymentStep() payment.Step {
	return s.flow.Step()
}

// ConfirmPayment asserts "I have paid" and submits the order confirmation
// with the session's stable idempotency token. On failure the flow stays on
// the code screen so a retry reuses the same token.
func (s *Session) ConfirmPayment(ctx context.Context) (*payment.Confirmation, error) {
	s.mu.Lock()
	before := s.payableBeforePointsLocked()
	addrID := ""
	if addr := s.addresses.Selected(); addr != nil {
		addrID = addr.ID
	}
	req := payment.ConfirmRequest{
		CustomerID:       s.customerID,
		AddressID:        addrID,
		ShippingMethodID: s.selection.ShippingID(),
		PaymentMethodID:  s.selection.PaymentID(),
		Payable:          s.payableLocked(before),
		Currency:         s.selection.Currency(),
		PointsApplied:    s.points.Applied(),
		Device:           s.device,
	}
	s.mu.Unlock()

	// The editing lock freezes everything the snapshot above reads, so the
	// remote call runs outside the session lock and read-only accessors
	// stay responsive while it is in flight.
	return s.flow.Confirm(ctx, func(idempotencyKey string) payment.ConfirmRequest {
		req.IdempotencyKey = idempotencyKey
		return req
	})
}

// PaymentConfirmation returns the confirmation after a successful payment.
func (s *Session) PaymentConfirmation() *payment.Confirmation {
	return s.flow.Confirmation()
}

// ShouldShowEmptyCartState reports whether the "nothing to check out" view
// may be shown. It is suppressed while a payment flow is open or a
// post-payment transition is pending, so the cart clearing on successful
// payment cannot flash an empty-cart screen before navigation.
func (s *Session) ShouldShowEmptyCartState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow.Step() != payment.StepIdle || s.flow.InProgress() {
		return false
	}
	return s.selection.CartIsEmpty()
}

// Reset begins a fresh checkout attempt: the flow closes, committed points
// clear, and the idempotency token is regenerated on next use.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flow.Close()
	s.points.Reset()
	s.selection.ClearCart()
	return s.flow.ResetIdempotencyKey(ctx)
}
