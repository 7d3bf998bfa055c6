package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

const cartPayload = `{
	"id": "cart-1",
	"lines": [
		{"merchandiseId": "m1", "quantity": 2, "unitPrice": "2500", "total": "5000"}
	],
	"cost": {"subtotal": "5000", "discount": "1500", "total": "3500", "currency": "CNY"},
	"appliedCoupons": [{"code": "SAVE15", "amount": "1500"}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, zap.NewNop())
}

func TestApplyCouponDecodesCart(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/coupons", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(cartPayload))
	})

	updated, err := c.ApplyCoupon(context.Background(), "SAVE15")
	require.NoError(t, err)
	assert.Equal(t, "SAVE15", gotBody["code"])
	assert.Equal(t, "cart-1", updated.ID)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 2, updated.Lines[0].Quantity)
	assert.Equal(t, "1500", updated.Cost.Discount)
	require.Len(t, updated.AppliedCoupons, 1)
	assert.Equal(t, "SAVE15", updated.AppliedCoupons[0].Code)
}

func TestRemoveCouponEscapesCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/coupons/SAVE%2F15", r.URL.RawPath)
		_, _ = w.Write([]byte(cartPayload))
	})

	_, err := c.RemoveCoupon(context.Background(), "SAVE/15")
	require.NoError(t, err)
}

func TestRemoteErrorMessageSurfacedVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code": 422, "message": "coupon expired"}`))
	})

	_, err := c.ApplyCoupon(context.Background(), "OLD")
	require.Error(t, err)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 422, re.Code)
	assert.Equal(t, "coupon expired", err.Error())
}

func TestRemoteErrorFallbackMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.ApplyCoupon(context.Background(), "ANY")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadGateway, re.Code)
	assert.Equal(t, genericFailure, re.Message)
}

func TestRedeemCouponDecodesWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/c1/coupons", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"code": "WELCOME",
			"type": "fixed",
			"value": "500",
			"minSubtotal": "2000",
			"startsAt": "2025-06-01T00:00:00Z",
			"expiresAt": "2025-12-31T23:59:59Z",
			"description": "welcome gift"
		}`))
	})

	got, err := c.RedeemCoupon(context.Background(), "c1", "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", got.Code)
	assert.Equal(t, coupon.DiscountFixed, got.Type)
	assert.Equal(t, "500", got.Value.String())
	require.NotNil(t, got.StartsAt)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, 2025, got.StartsAt.Year())
}

func TestRedeemCouponNullWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": "EVERGREEN", "type": "percentage", "value": "10", "startsAt": null, "expiresAt": null}`))
	})

	got, err := c.RedeemCoupon(context.Background(), "c1", "EVERGREEN")
	require.NoError(t, err)
	assert.Nil(t, got.StartsAt)
	assert.Nil(t, got.ExpiresAt)
}

func TestAddAddressRoundTrip(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/c1/addresses", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{
			"addresses": [
				{"id": "a1", "name": "Old", "default": false},
				{"id": "a2", "name": "Li Lei", "default": true}
			],
			"added": {"id": "a2", "name": "Li Lei", "default": true}
		}`))
	})

	res, err := c.AddAddress(context.Background(), "c1", address.Input{
		Name:     "Li Lei",
		Phone:    "13800000000",
		Province: "Guangdong",
		City:     "Shenzhen",
		Detail:   "1 Keji Road",
		Default:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Li Lei", gotBody["name"])
	assert.Equal(t, true, gotBody["default"])
	require.Len(t, res.Addresses, 2)
	require.NotNil(t, res.Touched)
	assert.Equal(t, "a2", res.Touched.ID)
}

func TestConfirmAndNotifySendsIdempotencyKey(t *testing.T) {
	var gotBody map[string]any
	var gotHeader string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/confirm", r.URL.Path)
		gotHeader = r.Header.Get("Idempotency-Key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"orderId": "order-9", "resultUrl": "/pay/result", "paidAmount": "7000", "currency": "CNY"}`))
	})

	conf, err := c.ConfirmAndNotify(context.Background(), payment.ConfirmRequest{
		CustomerID:       "c1",
		AddressID:        "a1",
		ShippingMethodID: "standard",
		PaymentMethodID:  "qr",
		Payable:          decimal.NewFromInt(7000),
		Currency:         "CNY",
		PointsApplied:    2000,
		IdempotencyKey:   "tok-123",
		Device:           payment.DeviceContext{Platform: "web", UserAgent: "ua"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotHeader)
	assert.Equal(t, "tok-123", gotBody["idempotencyKey"])
	assert.Equal(t, "7000", gotBody["payable"])
	assert.Equal(t, float64(2000), gotBody["pointsApplied"])
	assert.Equal(t, "order-9", conf.OrderID)
	assert.Equal(t, "7000", conf.PaidAmount.String())

	device, ok := gotBody["device"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "web", device["platform"])
}
