package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/cart"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/metrics"
	"github.com/foodle-app/foodle/pkg/payment"
	"github.com/foodle-app/foodle/pkg/pickup"
)

// OrderWriter is the part of the order store checkout needs.
type OrderWriter interface {
	CreateBatch(ctx context.Context, orders []*models.Order) error
	FindByPaymentID(ctx context.Context, paymentID string) ([]models.Order, error)
	CountActive(ctx context.Context, stallID string) (int64, error)
	SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (int, error)
}

// StallReader is the part of the stall store checkout needs.
type StallReader interface {
	FindByID(ctx context.Context, id string) (models.Stall, error)
}

// CheckoutRequest is what the payment widget returns after a successful
// payment, plus the student's note for the stalls.
type CheckoutRequest struct {
	PaymentOrderID      string
	PaymentID           string
	Signature           string
	SpecialInstructions string
}

// CheckoutService turns a paid cart into one order per stall.
type CheckoutService struct {
	carts   *CartService
	stalls  StallReader
	orders  OrderWriter
	gateway payment.Gateway
	codes   *pickup.Generator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewCheckoutService(carts *CartService, stalls StallReader, orders OrderWriter, gateway payment.Gateway, codes *pickup.Generator) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		stalls:   stalls,
		orders:   orders,
		gateway:  gateway,
		codes:    codes,
		inFlight: make(map[string]struct{}),
	}
}

// Gateway is the configured payment provider.
func (s *CheckoutService) Gateway() payment.Gateway { return s.gateway }

// CreatePaymentOrder opens a hosted payment for the student's cart. amount
// must equal the cart total and every stall in the cart must be taking
// orders.
func (s *CheckoutService) CreatePaymentOrder(ctx context.Context, userID string, amount decimal.Decimal) (payment.HostedOrder, error) {
	c, err := s.carts.Open(ctx, userID)
	if err != nil {
		return payment.HostedOrder{}, err
	}
	if c.Len() == 0 {
		return payment.HostedOrder{}, ErrEmptyCart
	}
	if err := s.checkStalls(ctx, c); err != nil {
		return payment.HostedOrder{}, err
	}
	total := c.TotalAmount()
	if !amount.Equal(total) {
		return payment.HostedOrder{}, fmt.Errorf("%w: got %s, cart total is %s", ErrAmountMismatch, amount, total)
	}

	receipt := fmt.Sprintf("rcpt_%.8s_%d", userID, time.Now().Unix())
	order, err := s.gateway.CreateOrder(ctx, total, receipt)
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		return payment.HostedOrder{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	case err != nil:
		metrics.CheckoutFailures.WithLabelValues("gateway").Inc()
		return payment.HostedOrder{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	logger.WithCtx(ctx).Info("checkout: payment order created",
		"user_id", userID, "payment_order_id", order.ID, "amount", order.Amount, "provider", order.Provider)
	return order, nil
}

func (s *CheckoutService) checkStalls(ctx context.Context, c *cart.Cart) error {
	for _, id := range c.StallIDs() {
		stall, err := s.stalls.FindByID(ctx, id)
		if err != nil {
			return missing(err, "stall")
		}
		if !stall.CanOrder() {
			return fmt.Errorf("%w: %s (%s)", ErrStallUnavailable, stall.Name, stall.StatusLabel())
		}
		if stall.OrderCap > 0 {
			n, err := s.orders.CountActive(ctx, id)
			if err != nil {
				return err
			}
			if n >= int64(stall.OrderCap) {
				return fmt.Errorf("%w: %s", ErrStallAtCapacity, stall.Name)
			}
		}
	}
	return nil
}

// Checkout verifies the payment and creates one paid order per stall in the
// cart, all or nothing. Retrying with the same payment id returns the orders
// the first attempt created.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req CheckoutRequest) ([]models.Order, error) {
	if !s.acquire(userID) {
		return nil, ErrCheckoutInFlight
	}
	defer s.release(userID)
	log := logger.WithCtx(ctx).With("user_id", userID, "payment_id", req.PaymentID)

	if req.PaymentID == "" {
		return nil, newError(ErrInvalid, "payment_id is required")
	}
	existing, err := s.orders.FindByPaymentID(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if existing[0].UserID != userID {
			return nil, ErrNotYourOrder
		}
		log.Info("checkout: payment already fulfilled", "orders", len(existing))
		s.clearCart(ctx, userID)
		return existing, nil
	}

	conf := payment.Confirmation{OrderID: req.PaymentOrderID, PaymentID: req.PaymentID, Signature: req.Signature}
	capture, err := s.gateway.VerifyPayment(ctx, conf)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("verification").Inc()
		log.Warn("checkout: payment verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	c, err := s.carts.Open(ctx, userID)
	if err != nil {
		return nil, s.paidButNotPersisted(ctx, req, err)
	}
	if c.Len() == 0 {
		return nil, s.paidButNotPersisted(ctx, req, ErrEmptyCart)
	}

	orders, err := s.build(userID, c.Partition(), req)
	if err != nil {
		return nil, s.paidButNotPersisted(ctx, req, err)
	}
	// The cart may have changed since the payment order was opened. It is
	// kept so the same payment can be retried once the totals match.
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	if paid := capture.Paid(); !paid.Equal(total) {
		return nil, s.paidButNotPersisted(ctx, req,
			fmt.Errorf("%w: paid %s, cart total %s", ErrAmountMismatch, paid, total))
	}
	if err := s.orders.CreateBatch(ctx, orders); err != nil {
		return nil, s.paidButNotPersisted(ctx, req, err)
	}

	for _, o := range orders {
		metrics.OrdersCreated.WithLabelValues(o.StallID).Inc()
	}
	log.Info("checkout: orders created", "orders", len(orders), "total", c.TotalAmount().String())
	s.clearCart(ctx, userID)

	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out, nil
}

func (s *CheckoutService) build(userID string, groups []cart.Group, req CheckoutRequest) ([]*models.Order, error) {
	orders := make([]*models.Order, 0, len(groups))
	for _, g := range groups {
		lines := make(models.LineItems, len(g.Items))
		for i, it := range g.Items {
			lines[i] = models.LineItem{MenuItemID: it.MenuItemID, Name: it.Name, Price: it.Price, Quantity: it.Quantity}
		}
		code, err := s.codes.Generate()
		if err != nil {
			return nil, err
		}
		o, err := models.NewOrder(userID, g.StallID, lines, req.SpecialInstructions, code)
		if err != nil {
			return nil, err
		}
		o.MarkPaid(s.gateway.Name(), req.PaymentOrderID, req.PaymentID)
		orders = append(orders, o)
	}
	return orders, nil
}

// paidButNotPersisted logs everything support needs to reconcile the
// payment by hand. The cart is left as it was.
func (s *CheckoutService) paidButNotPersisted(ctx context.Context, req CheckoutRequest, cause error) error {
	metrics.CheckoutFailures.WithLabelValues("persist").Inc()
	logger.WithCtx(ctx).Error("checkout: paid but orders not created",
		"payment_order_id", req.PaymentOrderID, "payment_id", req.PaymentID, "error", cause)
	return fmt.Errorf("%w (%v)", ErrPaidButNotPersisted, cause)
}

func (s *CheckoutService) clearCart(ctx context.Context, userID string) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.WithCtx(ctx).Warn("checkout: clear cart failed", "user_id", userID, "error", err)
	}
}

func (s *CheckoutService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *CheckoutService) release(userID string) {
	s.mu.Lock()
	delete(s.inFlight, userID)
	s.mu.Unlock()
}

// Refunded marks every order funded by paymentID as refunded.
func (s *CheckoutService) Refunded(ctx context.Context, paymentID string) (int, error) {
	n, err := s.orders.SetPaymentStatus(ctx, paymentID, models.PaymentRefunded)
	if err != nil {
		return 0, err
	}
	logger.WithCtx(ctx).Info("checkout: payment refunded", "payment_id", paymentID, "orders", n)
	return n, nil
}
