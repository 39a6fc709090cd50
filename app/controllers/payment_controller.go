package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/payment"
)

// WebhookParser verifies and decodes a provider webhook.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

type PaymentController struct {
	checkout *services.CheckoutService
	webhooks WebhookParser
}

// NewPaymentController serves payment endpoints. webhooks may be nil when the
// provider has no webhook endpoint.
func NewPaymentController(checkout *services.CheckoutService, webhooks WebhookParser) *PaymentController {
	return &PaymentController{checkout: checkout, webhooks: webhooks}
}

type paymentOrderInput struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type checkoutInput struct {
	PaymentOrderID      string `json:"payment_order_id"     validate:"required"`
	PaymentID           string `json:"payment_id"           validate:"required"`
	Signature           string `json:"signature"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
}

// CreateOrder opens a hosted payment for the cart total.
func (h *PaymentController) CreateOrder(c *ctx.Context) {
	var in paymentOrderInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := h.checkout.CreatePaymentOrder(c.Context(), c.UserID(), in.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// Checkout turns the paid cart into orders.
func (h *PaymentController) Checkout(c *ctx.Context) {
	var in checkoutInput
	if !c.BindJSON(&in) {
		return
	}
	orders, err := h.checkout.Checkout(c.Context(), c.UserID(), services.CheckoutRequest{
		PaymentOrderID:      in.PaymentOrderID,
		PaymentID:           in.PaymentID,
		Signature:           in.Signature,
		SpecialInstructions: in.SpecialInstructions,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(orders)
}

// StripeWebhook acknowledges provider events and applies refunds.
func (h *PaymentController) StripeWebhook(c *ctx.Context) {
	if h.webhooks == nil {
		c.NotFound()
		return
	}
	body, err := c.Body()
	if err != nil {
		c.Error(http.StatusBadRequest, "Unreadable body")
		return
	}
	event, err := h.webhooks.ParseWebhook(body, c.Header("Stripe-Signature"))
	if err != nil {
		logger.WithCtx(c.Context()).Warn("payment: webhook rejected", "error", err)
		c.Error(http.StatusBadRequest, "Invalid signature")
		return
	}

	log := logger.WithCtx(c.Context()).With("event", event.Type, "payment_intent", event.PaymentIntentID)
	switch event.Type {
	case "charge.refunded":
		if event.PaymentIntentID == "" {
			break
		}
		if _, err := h.checkout.Refunded(c.Context(), event.PaymentIntentID); err != nil {
			fail(c, err)
			return
		}
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		log.Info("payment: webhook received")
	default:
		log.Debug("payment: webhook ignored")
	}
	c.Success(map[string]bool{"received": true})
}
