package stub

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/gateway"
)

func seededGateway() *Gateway {
	g := New()
	g.SeedCart(cart.Cart{
		ID: "cart-1",
		Lines: []cart.Line{
			{MerchandiseID: "m1", Quantity: 2, UnitPrice: "2500", Total: "5000"},
			{MerchandiseID: "m2", Quantity: 1, UnitPrice: "5000", Total: "5000"},
		},
		Cost: cart.Summary{Subtotal: "10000", Discount: "0", Total: "10000", Currency: "CNY"},
	})
	g.SeedRule("SAVE10", Rule{Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(10)})
	g.SeedRule("FLAT500", Rule{Type: coupon.DiscountFixed, Value: decimal.NewFromInt(500)})
	return g
}

func TestApplyCouponReSumsCart(t *testing.T) {
	g := seededGateway()

	got, err := g.ApplyCoupon(context.Background(), "save10")
	require.NoError(t, err)
	assert.Equal(t, "1000", got.Cost.Discount)
	assert.Equal(t, "9000", got.Cost.Total)
	require.Len(t, got.AppliedCoupons, 1)
	assert.Equal(t, "SAVE10", got.AppliedCoupons[0].Code)

	got, err = g.ApplyCoupon(context.Background(), "FLAT500")
	require.NoError(t, err)
	assert.Equal(t, "1500", got.Cost.Discount)
	assert.Equal(t, "8500", got.Cost.Total)
}

func TestApplyCouponIsIdempotentPerCode(t *testing.T) {
	g := seededGateway()

	_, err := g.ApplyCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)
	got, err := g.ApplyCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)
	require.Len(t, got.AppliedCoupons, 1)
}

func TestApplyUnknownCodeFails(t *testing.T) {
	g := seededGateway()

	_, err := g.ApplyCoupon(context.Background(), "NOPE")
	var re *gateway.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 422, re.Code)
	assert.Equal(t, "invalid coupon code", err.Error())
}

func TestApplyExpiredCodeFails(t *testing.T) {
	g := seededGateway()
	past := time.Now().Add(-time.Hour)
	g.SeedRule("OLD", Rule{Type: coupon.DiscountFixed, Value: decimal.NewFromInt(100), ExpiresAt: &past})

	_, err := g.ApplyCoupon(context.Background(), "OLD")
	require.Error(t, err)
	assert.Equal(t, "coupon expired", err.Error())
}

func TestRemoveCouponRestoresTotal(t *testing.T) {
	g := seededGateway()

	_, err := g.ApplyCoupon(context.Background(), "SAVE10")
	require.NoError(t, err)
	got, err := g.RemoveCoupon(context.Background(), "save10")
	require.NoError(t, err)
	assert.Empty(t, got.AppliedCoupons)
	assert.Equal(t, "0", got.Cost.Discount)
	assert.Equal(t, "10000", got.Cost.Total)
}

func TestRedeemCouponRequiresCustomer(t *testing.T) {
	g := seededGateway()

	_, err := g.RedeemCoupon(context.Background(), "", "SAVE10")
	var re *gateway.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 401, re.Code)

	got, err := g.RedeemCoupon(context.Background(), "c1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
	assert.Equal(t, coupon.DiscountPercentage, got.Type)
}

func TestAddAddressExclusiveDefault(t *testing.T) {
	g := New()
	g.SeedAddresses("c1", []address.Address{
		{ID: "a1", Name: "Old", Default: true},
	})

	res, err := g.AddAddress(context.Background(), "c1", address.Input{
		Name:    "New",
		Phone:   "13800000000",
		City:    "Shenzhen",
		Detail:  "1 Keji Road",
		Default: true,
	})
	require.NoError(t, err)
	require.Len(t, res.Addresses, 2)
	assert.False(t, res.Addresses[0].Default)
	assert.True(t, res.Addresses[1].Default)
	require.NotNil(t, res.Touched)
	assert.Equal(t, res.Addresses[1].ID, res.Touched.ID)
}

func TestSetDefaultAddressMovesFlag(t *testing.T) {
	g := New()
	g.SeedAddresses("c1", []address.Address{
		{ID: "a1", Default: true},
		{ID: "a2"},
	})

	res, err := g.SetDefaultAddress(context.Background(), "c1", "a2")
	require.NoError(t, err)
	assert.False(t, res.Addresses[0].Default)
	assert.True(t, res.Addresses[1].Default)

	_, err = g.SetDefaultAddress(context.Background(), "c1", "missing")
	require.Error(t, err)

	// The failed call must not have touched the book: a2 keeps the flag.
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.False(t, g.addresses["c1"][0].Default)
	assert.True(t, g.addresses["c1"][1].Default)
}

func TestConfirmAndNotifyDeduplicatesByKey(t *testing.T) {
	g := seededGateway()
	req := payment.ConfirmRequest{
		CustomerID:     "c1",
		Payable:        decimal.NewFromInt(7000),
		Currency:       "CNY",
		IdempotencyKey: "tok-1",
	}

	first, err := g.ConfirmAndNotify(context.Background(), req)
	require.NoError(t, err)
	second, err := g.ConfirmAndNotify(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, g.OrderCount())

	req.IdempotencyKey = "tok-2"
	third, err := g.ConfirmAndNotify(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, third.OrderID)
	assert.Equal(t, 2, g.OrderCount())
}

func writeCodePack(t *testing.T, path string, codes []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	for _, c := range codes {
		_, err = gz.Write([]byte(c + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestLoadCodePack(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "codes1.gz")
	p2 := filepath.Join(dir, "codes2.gz")
	writeCodePack(t, p1, []string{"SPRINGSALE", "xx", "WELCOME1"})
	writeCodePack(t, p2, []string{"AUTUMNSALE"})

	filter, err := LoadCodePack(context.Background(), zap.NewNop(), []string{p1, p2})
	require.NoError(t, err)

	assert.True(t, filter.TestString("SPRINGSALE"))
	assert.True(t, filter.TestString("WELCOME1"))
	assert.True(t, filter.TestString("AUTUMNSALE"))
	assert.False(t, filter.TestString("xx"))

	g := seededGateway()
	g.UseCodePack(filter, Rule{Type: coupon.DiscountPercentage, Value: decimal.NewFromInt(5)})

	got, err := g.ApplyCoupon(context.Background(), "SPRINGSALE")
	require.NoError(t, err)
	assert.Equal(t, "500", got.Cost.Discount)
}

func TestLoadCodePackMissingFile(t *testing.T) {
	_, err := LoadCodePack(context.Background(), zap.NewNop(), []string{"/does/not/exist.gz"})
	require.Error(t, err)
}
