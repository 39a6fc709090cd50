package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/payment"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12000), payment.MinorUnits(decimal.NewFromInt(120)))
	assert.Equal(t, int64(1999), payment.MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), payment.MinorUnits(decimal.RequireFromString("0.005")))
	assert.True(t, payment.MajorUnits(12050).Equal(decimal.RequireFromString("120.5")))
}

func TestRazorpay_CreateOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc","amount":12000,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	rp := payment.NewRazorpay("rzp_test", "secret", srv.URL+"/v1", "INR")
	order, err := rp.CreateOrder(context.Background(), decimal.NewFromInt(120), "r1")
	require.NoError(t, err)

	assert.Equal(t, "order_Abc", order.ID)
	assert.Equal(t, int64(12000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test", order.KeyID)
	assert.EqualValues(t, 12000, got["amount"])
	assert.Equal(t, "r1", got["receipt"])
}

func TestRazorpay_CreateOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	rp := payment.NewRazorpay("k", "s", srv.URL, "INR")
	_, err := rp.CreateOrder(context.Background(), decimal.NewFromInt(1), "r")
	assert.ErrorIs(t, err, payment.ErrProviderRejected)
	assert.ErrorContains(t, err, "amount too small")
}

func TestRazorpay_CreateOrderValidation(t *testing.T) {
	rp := payment.NewRazorpay("k", "s", "http://unused", "INR")
	_, err := rp.CreateOrder(context.Background(), decimal.Zero, "r")
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	_, err = payment.NewRazorpay("", "", "http://unused", "INR").CreateOrder(context.Background(), decimal.NewFromInt(5), "r")
	assert.ErrorIs(t, err, payment.ErrNotConfigured)
}

func razorpayPayments(t *testing.T, payments map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "k", user)
		assert.Equal(t, "secret", pass)

		body, found := payments[r.URL.Path]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func confirmation(orderID, paymentID string) payment.Confirmation {
	return payment.Confirmation{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: payment.Sign("secret", orderID, paymentID),
	}
}

func TestRazorpay_VerifyPayment(t *testing.T) {
	srv := razorpayPayments(t, map[string]string{
		"/v1/payments/pay_1": `{"id":"pay_1","order_id":"order_1","amount":5000,"currency":"INR","status":"captured"}`,
		"/v1/payments/pay_2": `{"id":"pay_2","order_id":"order_1","amount":5000,"currency":"INR","status":"authorized"}`,
	})
	rp := payment.NewRazorpay("k", "secret", srv.URL+"/v1", "INR")
	ctx := context.Background()

	capture, err := rp.VerifyPayment(ctx, confirmation("order_1", "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, "pay_1", capture.PaymentID)
	assert.Equal(t, "order_1", capture.OrderID)
	assert.Equal(t, int64(5000), capture.Amount)
	assert.Equal(t, "INR", capture.Currency)
	assert.True(t, capture.Paid().Equal(decimal.NewFromInt(50)))

	_, err = rp.VerifyPayment(ctx, confirmation("order_1", "pay_2"))
	assert.NoError(t, err)
}

func TestRazorpay_VerifyPaymentRejects(t *testing.T) {
	srv := razorpayPayments(t, map[string]string{
		"/v1/payments/pay_1":      `{"id":"pay_1","order_id":"order_1","amount":5000,"currency":"INR","status":"captured"}`,
		"/v1/payments/pay_other":  `{"id":"pay_other","order_id":"order_9","amount":100,"currency":"INR","status":"captured"}`,
		"/v1/payments/pay_failed": `{"id":"pay_failed","order_id":"order_1","amount":5000,"currency":"INR","status":"failed"}`,
	})
	rp := payment.NewRazorpay("k", "secret", srv.URL+"/v1", "INR")
	ctx := context.Background()

	tampered := confirmation("order_1", "pay_1")
	tampered.PaymentID = "pay_2"
	_, err := rp.VerifyPayment(ctx, tampered)
	assert.ErrorIs(t, err, payment.ErrVerification)
	assert.ErrorContains(t, err, "signature mismatch")

	_, err = rp.VerifyPayment(ctx, payment.Confirmation{OrderID: "order_1"})
	assert.ErrorIs(t, err, payment.ErrVerification)

	// a correctly signed payment for some other order
	_, err = rp.VerifyPayment(ctx, confirmation("order_1", "pay_other"))
	assert.ErrorIs(t, err, payment.ErrVerification)
	assert.ErrorContains(t, err, "belongs to order order_9")

	_, err = rp.VerifyPayment(ctx, confirmation("order_1", "pay_failed"))
	assert.ErrorIs(t, err, payment.ErrVerification)
	assert.ErrorContains(t, err, "is failed")

	_, err = rp.VerifyPayment(ctx, confirmation("order_1", "pay_missing"))
	assert.ErrorIs(t, err, payment.ErrVerification)
	assert.ErrorContains(t, err, "does not exist")

	_, err = payment.NewRazorpay("k", "", srv.URL, "INR").VerifyPayment(ctx, confirmation("order_1", "pay_1"))
	assert.ErrorIs(t, err, payment.ErrNotConfigured)
}
