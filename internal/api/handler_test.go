package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/gateway/stub"
	"github.com/xenking/storefront-checkout/pkg/kv"
)

func newTestMux(t *testing.T) (*http.ServeMux, *stub.Gateway) {
	t.Helper()

	gw := stub.New()
	gw.SeedRule("FALL15", stub.Rule{
		Type:  coupon.DiscountFixed,
		Value: decimal.NewFromInt(1500),
	})

	h := NewHandler(gw, kv.NewMemory(), zap.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, gw
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func createTestSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions", map[string]any{
		"customerId":     "c1",
		"loyaltyBalance": 2000,
		"platform":       "web",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createSessionResponse
	decodeInto(t, rec, &resp)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

var testCart = map[string]any{
	"id": "cart-1",
	"lines": []map[string]any{
		{"merchandiseId": "m1", "quantity": 2, "unitPrice": "2500", "total": "5000"},
		{"merchandiseId": "m2", "quantity": 1, "unitPrice": "5000", "total": "5000"},
	},
	"cost": map[string]any{
		"subtotal": "10000", "discount": "0", "total": "10000", "currency": "CNY",
	},
}

func primeSession(t *testing.T, mux *http.ServeMux, id string) {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/cart", testCart)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/shipping-methods", map[string]any{
		"methods": []map[string]any{
			{"id": "standard", "name": "Standard", "price": "500", "enabled": true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/payment-methods", map[string]any{
		"methods": []map[string]any{
			{"id": "qr", "name": "QR Pay", "price": "0", "enabled": true},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/addresses", map[string]any{
		"name":     "Li Lei",
		"phone":    "13800000000",
		"province": "Guangdong",
		"city":     "Shenzhen",
		"detail":   "1 Keji Road",
		"default":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCheckoutScenarioOverHTTP(t *testing.T) {
	mux, gw := newTestMux(t)
	id := createTestSession(t, mux)
	primeSession(t, mux, id)

	// Coupon: 10000 - 1500 + 500 shipping = 9000 before points.
	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/coupons", map[string]any{
		"code": "FALL15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap snapshotPayload
	decodeInto(t, rec, &snap)
	assert.Equal(t, "9000", snap.Totals.PayableBeforePoints)
	assert.Equal(t, []string{"fall15"}, snap.AppliedCouponCodes)
	assert.True(t, snap.CanPay)

	// Max points: balance 2000 fully applied.
	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/points/max", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &snap)
	assert.Equal(t, int64(2000), snap.Totals.PointsApplied)
	assert.Equal(t, "7000", snap.Totals.Payable)

	// Open and confirm.
	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &snap)
	assert.Equal(t, "awaiting-scan", snap.PaymentStep)

	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var conf confirmationPayload
	decodeInto(t, rec, &conf)
	assert.NotEmpty(t, conf.OrderID)
	assert.Equal(t, "7000", conf.PaidAmount)
	assert.Equal(t, 1, gw.OrderCount())

	rec = doJSON(t, mux, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &snap)
	assert.Equal(t, "success", snap.PaymentStep)
	require.NotNil(t, snap.Confirmation)
	assert.Equal(t, conf.OrderID, snap.Confirmation.OrderID)
}

func TestConcurrentSessionsCreateSeparateOrders(t *testing.T) {
	mux, gw := newTestMux(t)

	// Both sessions run against the handler's shared store; each must still
	// confirm under its own idempotency token and get its own order.
	orderIDs := make(map[string]struct{})
	for range 2 {
		id := createTestSession(t, mux)
		primeSession(t, mux, id)

		rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/open", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/confirm", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var conf confirmationPayload
		decodeInto(t, rec, &conf)
		orderIDs[conf.OrderID] = struct{}{}
	}

	assert.Len(t, orderIDs, 2)
	assert.Equal(t, 2, gw.OrderCount())
}

func TestEditsRejectedWhilePaymentOpen(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)
	primeSession(t, mux, id)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/cart", testCart)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var payload errorPayload
	decodeInto(t, rec, &payload)
	assert.Equal(t, http.StatusConflict, payload.Code)
	assert.NotEmpty(t, payload.Message)

	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/points/max", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOpenPaymentWithoutAddressConflicts(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)

	rec := doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/cart", testCart)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/pay/open", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInvalidCouponSurfacesRemoteMessage(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)
	primeSession(t, mux, id)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/coupons", map[string]any{
		"code": "NOPE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var payload errorPayload
	decodeInto(t, rec, &payload)
	assert.Equal(t, "invalid coupon code", payload.Message)
}

func TestInvalidPointsInputRejected(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)
	primeSession(t, mux, id)

	rec := doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/points", map[string]any{
		"input": "not-a-number",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/points", map[string]any{
		"input": "999999",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestInvalidAddressRejectedLocally(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/sessions/"+id+"/addresses", map[string]any{
		"name": "No Phone",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSetWalletDropsInactiveCoupons(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)

	rec := doJSON(t, mux, http.MethodPut, "/api/sessions/"+id+"/coupons", map[string]any{
		"coupons": []map[string]any{
			{"code": "EVERGREEN", "type": "percentage", "value": "10"},
			{"code": "EXPIRED", "type": "fixed", "value": "500", "expiresAt": "2020-01-01T00:00:00Z"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap snapshotPayload
	decodeInto(t, rec, &snap)
	require.Len(t, snap.AvailableCoupons, 1)
	assert.Equal(t, "EVERGREEN", snap.AvailableCoupons[0].Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedBodyIs400(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/coupons", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSessionRemovesIt(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestSession(t, mux)

	rec := doJSON(t, mux, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
