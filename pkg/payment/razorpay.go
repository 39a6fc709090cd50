package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	client "github.com/foodle-app/foodle/pkg/http"
)

// Razorpay creates orders over the Razorpay REST API, checks the checkout
// signature locally and reads the captured amount back from the API.
type Razorpay struct {
	keyID    string
	secret   string
	baseURL  string
	currency string
}

func NewRazorpay(keyID, secret, baseURL, currency string) *Razorpay {
	return &Razorpay{
		keyID:    keyID,
		secret:   secret,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
	}
}

func (r *Razorpay) Name() string { return "razorpay" }

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (HostedOrder, error) {
	if r.keyID == "" || r.secret == "" {
		return HostedOrder{}, ErrNotConfigured
	}
	minor := MinorUnits(amount)
	if minor <= 0 {
		return HostedOrder{}, ErrInvalidAmount
	}

	resp, err := client.Post(r.baseURL+"/orders").
		BasicAuth(r.keyID, r.secret).
		Body(map[string]any{
			"amount":   minor,
			"currency": r.currency,
			"receipt":  receipt,
		}).
		Retry(3, 300*time.Millisecond).
		Send(ctx)
	if err != nil {
		return HostedOrder{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	if !resp.OK() {
		var e razorpayError
		_ = resp.JSON(&e)
		return HostedOrder{}, fmt.Errorf("%w: razorpay %d %s", ErrProviderRejected, resp.StatusCode, e.Error.Description)
	}

	var o razorpayOrder
	if err := resp.JSON(&o); err != nil {
		return HostedOrder{}, err
	}
	return HostedOrder{
		ID:       o.ID,
		Amount:   o.Amount,
		Currency: o.Currency,
		Provider: r.Name(),
		KeyID:    r.keyID,
	}, nil
}

type razorpayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// VerifyPayment checks razorpay_signature = HMAC-SHA256(order_id|payment_id),
// then fetches the payment for the amount actually charged. The payment must
// belong to the order and be authorized or captured.
func (r *Razorpay) VerifyPayment(ctx context.Context, c Confirmation) (Capture, error) {
	if r.secret == "" {
		return Capture{}, ErrNotConfigured
	}
	if c.OrderID == "" || c.PaymentID == "" || c.Signature == "" {
		return Capture{}, fmt.Errorf("%w: missing order id, payment id or signature", ErrVerification)
	}
	want := Sign(r.secret, c.OrderID, c.PaymentID)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(c.Signature))) {
		return Capture{}, fmt.Errorf("%w: signature mismatch", ErrVerification)
	}

	resp, err := client.Get(r.baseURL+"/payments/"+url.PathEscape(c.PaymentID)).
		BasicAuth(r.keyID, r.secret).
		Retry(3, 300*time.Millisecond).
		Send(ctx)
	if err != nil {
		return Capture{}, fmt.Errorf("%w: razorpay fetch payment: %v", ErrVerification, err)
	}
	if !resp.OK() {
		var e razorpayError
		_ = resp.JSON(&e)
		return Capture{}, fmt.Errorf("%w: razorpay %d %s", ErrVerification, resp.StatusCode, e.Error.Description)
	}
	var p razorpayPayment
	if err := resp.JSON(&p); err != nil {
		return Capture{}, fmt.Errorf("%w: razorpay payment: %v", ErrVerification, err)
	}
	if p.OrderID != c.OrderID {
		return Capture{}, fmt.Errorf("%w: payment %s belongs to order %s", ErrVerification, p.ID, p.OrderID)
	}
	if p.Status != "captured" && p.Status != "authorized" {
		return Capture{}, fmt.Errorf("%w: payment %s is %s", ErrVerification, p.ID, p.Status)
	}
	return Capture{OrderID: p.OrderID, PaymentID: p.ID, Amount: p.Amount, Currency: strings.ToUpper(p.Currency)}, nil
}

// Sign computes the checkout signature for orderID and paymentID.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
