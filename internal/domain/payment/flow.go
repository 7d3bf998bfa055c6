package payment

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/pkg/kv"
)

// DefaultNavigateDelay is how long the success screen is shown before the
// automatic navigation to the result page.
const DefaultNavigateDelay = 800 * time.Millisecond

// Flow is the payment state machine. It is safe for concurrent use: the
// auto-navigation timer fires on a background goroutine.
//
// Transitions: idle → awaiting-scan (Open, guarded); awaiting-scan → help
// (RequestHelp) → awaiting-scan (BackToScan); awaiting-scan → success
// (Confirm); any → idle (Close).
type Flow struct {
	orders   OrderService
	store    kv.Store
	lg       *zap.Logger
	ready    func() bool
	navigate func(resultURL string)
	delay    time.Duration

	mu           sync.Mutex
	step         Step
	inProgress   bool
	timer        *time.Timer
	confirmation *Confirmation
}

// NewFlow creates a Flow in the idle step.
//
// ready is the entry guard: Open refuses to leave idle until it reports
// true. navigate is invoked once after a successful confirmation, unless
// the flow is closed first.
func NewFlow(
	orders OrderService,
	store kv.Store,
	lg *zap.Logger,
	ready func() bool,
	navigate func(resultURL string),
) *Flow {
	return &Flow{
		orders:   orders,
		store:    store,
		lg:       lg.Named("payment"),
		ready:    ready,
		navigate: navigate,
		delay:    DefaultNavigateDelay,
		step:     StepIdle,
	}
}

// Step returns the current flow step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Locked reports whether upstream editing sections must be non-interactive.
// The payable amount must not change between code display and confirmation,
// so everything stays locked while the flow is open.
func (f *Flow) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step == StepAwaitingScan || f.step == StepHelp
}

// InProgress reports whether a post-payment transition is pending. The
// empty-cart fallback view is suppressed while this is true, so clearing
// the cart on successful payment cannot flash an error screen before
// navigation completes.
func (f *Flow) InProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inProgress
}

// Open moves idle → awaiting-scan. When the entry guard is unmet the call
// is a no-op and returns ErrNotReady. Opening an already-open flow is a
// no-op without error.
func (f *Flow) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepIdle {
		return nil
	}
	if f.ready != nil && !f.ready() {
		return ErrNotReady
	}
	f.step = StepAwaitingScan
	return nil
}

// RequestHelp moves awaiting-scan → help. No-op in any other step.
func (f *Flow) RequestHelp() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == StepAwaitingScan {
		f.step = StepHelp
	}
}

// BackToScan moves help → awaiting-scan. No-op in any other step.
func (f *Flow) BackToScan() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step == StepHelp {
		f.step = StepAwaitingScan
	}
}

// Close moves any step to idle and cancels a pending auto-navigation, so a
// stray navigation cannot fire after the user has left.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.step = StepIdle
	f.inProgress = false
}

// Confirmation returns the order confirmation after a successful Confirm,
// or nil.
func (f *Flow) Confirmation() *Confirmation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmation
}

// IdempotencyKey returns the confirm token, generating and persisting it on
// first use. The same token is reused across retries of the same checkout
// attempt so a network retry cannot create two orders.
func (f *Flow) IdempotencyKey(ctx context.Context) (string, error) {
	token, err := f.store.Get(ctx, idempotencyTokenKey)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", errors.Wrap(err, "read idempotency token")
	}

	token = uuid.NewString()
	if err := f.store.Set(ctx, idempotencyTokenKey, token); err != nil {
		return "", errors.Wrap(err, "persist idempotency token")
	}
	return token, nil
}

// ResetIdempotencyKey discards the persisted token. Called when a fresh
// checkout attempt begins; never between retries of the same attempt.
func (f *Flow) ResetIdempotencyKey(ctx context.Context) error {
	return f.store.Delete(ctx, idempotencyTokenKey)
}

// Confirm submits the confirm-and-notify request built by buildReq, which
// receives the stable idempotency token.
//
// On failure the flow stays in awaiting-scan with the same token, so a
// retry is safe and cannot duplicate the order. On success the flow moves
// to success and schedules the automatic navigation.
func (f *Flow) Confirm(ctx context.Context, buildReq func(idempotencyKey string) ConfirmRequest) (*Confirmation, error) {
	f.mu.Lock()
	if f.step != StepAwaitingScan {
		f.mu.Unlock()
		return nil, ErrNotAwaitingScan
	}
	f.inProgress = true
	f.mu.Unlock()

	token, err := f.IdempotencyKey(ctx)
	if err != nil {
		f.setInProgress(false)
		return nil, err
	}

	req := buildReq(token)
	req.IdempotencyKey = token

	conf, err := f.orders.ConfirmAndNotify(ctx, req)
	if err != nil {
		f.lg.Warn("payment confirmation failed",
			zap.String("idempotency_key", token),
			zap.Error(err),
		)
		f.setInProgress(false)
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// The flow may have been closed while the request was in flight; the
	// result is then discarded.
	if f.step != StepAwaitingScan {
		f.inProgress = false
		return conf, nil
	}

	f.step = StepSuccess
	f.confirmation = conf
	f.lg.Info("payment confirmed",
		zap.String("order_id", conf.OrderID),
		zap.String("idempotency_key", token),
	)

	resultURL := conf.ResultURL
	f.timer = time.AfterFunc(f.delay, func() {
		f.mu.Lock()
		fire := f.step == StepSuccess
		f.inProgress = false
		f.timer = nil
		f.mu.Unlock()

		if fire && f.navigate != nil {
			f.navigate(resultURL)
		}
	})

	return conf, nil
}

func (f *Flow) setInProgress(v bool) {
	f.mu.Lock()
	f.inProgress = v
	f.mu.Unlock()
}
