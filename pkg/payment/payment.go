// Package payment talks to the hosted checkout provider.
//
// The service only creates provider-side orders and verifies completed
// payments. Card capture happens in the provider's widget.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("payment: amount must be positive")
	ErrVerification     = errors.New("payment: payment could not be verified")
	ErrProviderRejected = errors.New("payment: provider rejected the request")
	ErrNotConfigured    = errors.New("payment: provider credentials are not configured")
)

// HostedOrder describes a provider-side order the checkout widget pays.
// Amount is in the currency's minor unit (paise, cents).
type HostedOrder struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Provider     string `json:"provider,omitempty"`
	KeyID        string `json:"key_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Confirmation is what the widget hands back on success.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Capture is a verified payment as the provider recorded it. Amount is in
// minor units and is what the student was actually charged.
type Capture struct {
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
}

// Paid is the captured amount in major units.
func (c Capture) Paid() decimal.Decimal { return MajorUnits(c.Amount) }

// Gateway is a payment provider.
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (HostedOrder, error)
	VerifyPayment(ctx context.Context, c Confirmation) (Capture, error)
}

// MinorUnits converts a major-unit amount (rupees) to minor units (paise),
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// MajorUnits is the inverse of MinorUnits.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
