package points

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxRedeemable(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		payable int64
		want    int64
	}{
		{"balance below payable", 2000, 9000, 2000},
		{"payable below balance", 9000, 2000, 2000},
		{"equal", 500, 500, 500},
		{"zero balance", 0, 9000, 0},
		{"zero payable", 2000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(tt.balance)
			got := c.MaxRedeemable(decimal.NewFromInt(tt.payable))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaxRedeemableNegativePayable(t *testing.T) {
	c := NewCoordinator(2000)
	assert.Zero(t, c.MaxRedeemable(decimal.NewFromInt(-100)))
}

func TestApplyInput(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		max         int64
		wantErr     error
		wantApplied int64
	}{
		{"valid amount", "1500", 2000, nil, 1500},
		{"whitespace trimmed", " 300 ", 2000, nil, 300},
		{"zero is valid", "0", 2000, nil, 0},
		{"exact max", "2000", 2000, nil, 2000},
		{"empty input", "", 2000, ErrInvalidPoints, 0},
		{"not a number", "abc", 2000, ErrInvalidPoints, 0},
		{"fractional", "10.5", 2000, ErrInvalidPoints, 0},
		{"negative", "-5", 2000, ErrInvalidPoints, 0},
		{"exceeds max", "2001", 2000, ErrExceedsMax, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(5000)
			c.SetInput(tt.input)
			err := c.ApplyInput(tt.max)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantApplied, c.Applied())
		})
	}
}

func TestApplyInputFailureKeepsCommittedAmount(t *testing.T) {
	c := NewCoordinator(5000)
	c.SetInput("1000")
	require.NoError(t, c.ApplyInput(2000))

	c.SetInput("999999")
	require.ErrorIs(t, c.ApplyInput(2000), ErrExceedsMax)
	assert.Equal(t, int64(1000), c.Applied(), "failed apply must not mutate")
}

func TestApplyMaxAndReset(t *testing.T) {
	c := NewCoordinator(5000)
	c.ApplyMax(2000)
	assert.Equal(t, int64(2000), c.Applied())

	c.ApplyMax(-1)
	assert.Zero(t, c.Applied())

	c.SetInput("123")
	c.ApplyMax(500)
	c.Reset()
	assert.Zero(t, c.Applied())
	assert.Empty(t, c.Input())
}

func TestClampShrinksWithPayable(t *testing.T) {
	c := NewCoordinator(5000)
	c.ApplyMax(2000)

	// A coupon lands and the pre-points payable drops to 1200.
	c.Clamp(1200)
	assert.Equal(t, int64(1200), c.Applied())

	// Clamp never raises the committed amount.
	c.Clamp(4000)
	assert.Equal(t, int64(1200), c.Applied())

	c.Clamp(-10)
	assert.Zero(t, c.Applied())
}

func TestNegativeBalanceTreatedAsZero(t *testing.T) {
	c := NewCoordinator(-50)
	assert.Zero(t, c.Balance())
	assert.Zero(t, c.MaxRedeemable(decimal.NewFromInt(1000)))
}
