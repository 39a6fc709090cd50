package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Stripe uses PaymentIntents as hosted orders.
type Stripe struct {
	currency      string
	webhookSecret string
}

// NewStripe sets the global stripe key.
func NewStripe(secretKey, webhookSecret, currency string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{currency: strings.ToLower(currency), webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (HostedOrder, error) {
	if stripe.Key == "" {
		return HostedOrder{}, ErrNotConfigured
	}
	minor := MinorUnits(amount)
	if minor <= 0 {
		return HostedOrder{}, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("receipt", receipt)

	intent, err := paymentintent.New(params)
	if err != nil {
		return HostedOrder{}, fmt.Errorf("%w: stripe: %v", ErrProviderRejected, err)
	}
	return HostedOrder{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		Provider:     s.Name(),
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyPayment requires the intent to have succeeded and reports what it
// received. The payment id of a Stripe checkout is the intent id itself.
func (s *Stripe) VerifyPayment(ctx context.Context, c Confirmation) (Capture, error) {
	id := c.PaymentID
	if id == "" {
		id = c.OrderID
	}
	if id == "" {
		return Capture{}, fmt.Errorf("%w: missing payment intent", ErrVerification)
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := paymentintent.Get(id, params)
	if err != nil {
		return Capture{}, fmt.Errorf("%w: stripe: %v", ErrVerification, err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return Capture{}, fmt.Errorf("%w: intent %s is %s", ErrVerification, id, intent.Status)
	}
	return Capture{
		OrderID:   intent.ID,
		PaymentID: intent.ID,
		Amount:    intent.AmountReceived,
		Currency:  strings.ToUpper(string(intent.Currency)),
	}, nil
}

// WebhookEvent is the subset of a Stripe event the service acts on.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// payment intent the event refers to.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: stripe webhook: %v", ErrVerification, err)
	}

	out := WebhookEvent{Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("stripe webhook: decode intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return out, fmt.Errorf("stripe webhook: decode charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.PaymentIntentID = ch.PaymentIntent.ID
		}
	}
	return out, nil
}
