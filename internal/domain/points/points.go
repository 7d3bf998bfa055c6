// Package points tracks loyalty point redemption against the pre-points
// payable amount. One point is worth one minor currency unit.
package points

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for point redemption input.
var (
	// ErrInvalidPoints is returned when the input is not a non-negative integer.
	ErrInvalidPoints = errors.New("points must be a non-negative whole number")
	// ErrExceedsMax is returned when the input exceeds the redeemable maximum.
	ErrExceedsMax = errors.New("points exceed the redeemable maximum")
)

// Coordinator holds the raw input string, the committed applied amount, and
// the loyalty balance it is validated against. Not safe for concurrent use;
// the owning session serializes access.
type Coordinator struct {
	balance int64
	input   string
	applied int64
}

// NewCoordinator creates a Coordinator for the given loyalty balance.
// Negative balances are treated as zero.
func NewCoordinator(balance int64) *Coordinator {
	if balance < 0 {
		balance = 0
	}
	return &Coordinator{balance: balance}
}

// Balance returns the loyalty point balance.
func (c *Coordinator) Balance() int64 { return c.balance }

// Applied returns the committed number of points.
func (c *Coordinator) Applied() int64 { return c.applied }

// Input returns the raw user-entered string.
func (c *Coordinator) Input() string { return c.input }

// SetInput stores the raw input without committing it.
func (c *Coordinator) SetInput(s string) { c.input = s }

// MaxRedeemable returns min(balance, payableBeforePoints), the most points
// that can be applied without pushing the payable amount negative.
func (c *Coordinator) MaxRedeemable(payableBeforePoints decimal.Decimal) int64 {
	if payableBeforePoints.IsNegative() {
		return 0
	}
	payable := payableBeforePoints.IntPart()
	if c.balance < payable {
		return c.balance
	}
	return payable
}

// ApplyInput parses the stored input as a non-negative integer and commits
// it. The committed amount is untouched when the input is malformed,
// negative, or above max.
func (c *Coordinator) ApplyInput(max int64) error {
	raw := strings.TrimSpace(c.input)
	if raw == "" {
		return ErrInvalidPoints
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return ErrInvalidPoints
	}
	if n > max {
		return ErrExceedsMax
	}
	c.applied = n
	return nil
}

// ApplyMax commits the full redeemable maximum, bypassing text parsing.
func (c *Coordinator) ApplyMax(max int64) {
	if max < 0 {
		max = 0
	}
	c.applied = max
}

// Reset clears both the committed amount and the input.
func (c *Coordinator) Reset() {
	c.applied = 0
	c.input = ""
}

// Clamp lowers the committed amount to max when the pre-points payable
// shrinks below it, e.g. after a coupon lands while points are committed.
// Redemption is always re-validated against the latest payable figure.
func (c *Coordinator) Clamp(max int64) {
	if max < 0 {
		max = 0
	}
	if c.applied > max {
		c.applied = max
	}
}
