package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/lifecycle"
	"github.com/foodle-app/foodle/pkg/pickup"
	"github.com/foodle-app/foodle/pkg/realtime"
)

func TestCreatePaymentOrder_Gates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.checkout.CreatePaymentOrder(ctx, studentID, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	e.add(t, studentID, "Masala Dosa", "Masala Dosa", "Filter Coffee", "Masala Chai")

	_, err = e.checkout.CreatePaymentOrder(ctx, studentID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, services.ErrAmountMismatch)
	assert.ErrorIs(t, err, services.ErrInvalid)

	order, err := e.checkout.CreatePaymentOrder(ctx, studentID, decimal.NewFromInt(135))
	require.NoError(t, err)
	assert.Equal(t, int64(13500), order.Amount)
	assert.Equal(t, "INR", order.Currency)

	_, err = e.stalls.Update(ctx, chaiStall, map[string]any{"is_snoozed": true})
	require.NoError(t, err)
	_, err = e.checkout.CreatePaymentOrder(ctx, studentID, decimal.NewFromInt(135))
	assert.ErrorIs(t, err, services.ErrStallUnavailable)
	assert.ErrorContains(t, err, "Busy - Back Soon")
}

func TestCreatePaymentOrder_OrderCap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.stalls.Update(ctx, chaiStall, map[string]any{"order_cap": 1})
	require.NoError(t, err)

	e.placeOrder(t, "pay_first", "Samosa")

	e.add(t, studentID, "Samosa")
	_, err = e.checkout.CreatePaymentOrder(ctx, studentID, decimal.NewFromInt(18))
	assert.ErrorIs(t, err, services.ErrStallAtCapacity)
}

func TestCheckout_SplitsCartByStall(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub := e.hub.Subscribe(realtime.Filter{Table: repositories.TableOrders, Event: realtime.Insert})
	defer sub.Close()

	e.add(t, studentID, "Masala Dosa", "Masala Dosa", "Filter Coffee", "Masala Chai")
	orders, err := e.checkout.Checkout(ctx, studentID, services.CheckoutRequest{
		PaymentOrderID: e.pay(t), PaymentID: "pay_1", Signature: "sig", SpecialInstructions: "less sugar",
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	dosa, chai := orders[0], orders[1]
	assert.Equal(t, dosaStall, dosa.StallID)
	assert.Equal(t, "120", dosa.TotalAmount.String())
	assert.Len(t, dosa.Items, 2)
	assert.Equal(t, chaiStall, chai.StallID)
	assert.Equal(t, "15", chai.TotalAmount.String())

	gen, err := pickup.NewGenerator(pickup.DefaultDigits)
	require.NoError(t, err)
	for _, o := range orders {
		assert.Equal(t, lifecycle.Received, o.Status)
		assert.Equal(t, models.PaymentPaid, o.PaymentStatus)
		assert.Equal(t, "pay_1", o.PaymentID)
		assert.Equal(t, "fake", o.PaymentProvider)
		assert.Equal(t, "less sugar", o.SpecialInstructions)
		assert.True(t, gen.Valid(o.PickupCode), o.PickupCode)
	}

	stored, err := e.orders.FindByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	c, err := e.carts.Open(ctx, studentID)
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	for range orders {
		select {
		case ch := <-sub.Events():
			assert.Equal(t, realtime.Insert, ch.Event)
		default:
			t.Fatal("missing INSERT change")
		}
	}
}

func TestCheckout_IdempotentPerPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.placeOrder(t, "pay_1", "Masala Chai")

	e.add(t, studentID, "Samosa")
	again, err := e.checkout.Checkout(ctx, studentID, services.CheckoutRequest{PaymentOrderID: "order_test_1", PaymentID: "pay_1"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first.ID, again[0].ID)
	assert.Equal(t, 1, e.gateway.verified)

	var n int64
	require.NoError(t, e.db.Model(&models.Order{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCheckout_VerificationFailureKeepsCart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.gateway.verifyErr = errors.New("bad signature")
	e.add(t, studentID, "Masala Chai")

	_, err := e.checkout.Checkout(ctx, studentID, services.CheckoutRequest{PaymentOrderID: "o", PaymentID: "pay_x", Signature: "nope"})
	assert.ErrorIs(t, err, services.ErrPaymentFailed)
	assert.NotErrorIs(t, err, services.ErrPaidButNotPersisted)

	c, err := e.carts.Open(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

type failingOrders struct {
	*repositories.OrderRepository
}

func (failingOrders) CreateBatch(context.Context, []*models.Order) error {
	return errors.New("disk full")
}

func TestCheckout_PaidButNotPersisted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	codes, err := pickup.NewGenerator(4)
	require.NoError(t, err)
	checkout := services.NewCheckoutService(e.carts, e.stalls, failingOrders{e.orders}, e.gateway, codes)

	e.add(t, studentID, "Masala Chai", "Masala Dosa")
	_, err = checkout.Checkout(ctx, studentID, services.CheckoutRequest{PaymentOrderID: e.pay(t), PaymentID: "pay_y", Signature: "s"})
	require.ErrorIs(t, err, services.ErrPaidButNotPersisted)
	assert.Contains(t, err.Error(), "Payment successful but order creation failed. Please contact support.")

	c, err := e.carts.Open(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	orders, err := e.orders.FindByPaymentID(ctx, "pay_y")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCheckout_CartGrewAfterPaymentOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	dosa := e.item(t, "Masala Dosa")

	e.add(t, studentID, "Masala Dosa")
	hosted := e.pay(t)

	_, err := e.carts.SetQuantity(ctx, studentID, dosa, 10)
	require.NoError(t, err)

	req := services.CheckoutRequest{PaymentOrderID: hosted, PaymentID: "pay_small", Signature: "sig"}
	_, err = e.checkout.Checkout(ctx, studentID, req)
	require.ErrorIs(t, err, services.ErrPaidButNotPersisted)
	assert.ErrorContains(t, err, "amount does not match cart total")
	assert.ErrorContains(t, err, "paid 50, cart total 500")

	orders, err := e.orders.FindByPaymentID(ctx, "pay_small")
	require.NoError(t, err)
	assert.Empty(t, orders)

	c, err := e.carts.Open(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Items()[0].Quantity)

	// back to what was paid for, the same payment goes through
	_, err = e.carts.SetQuantity(ctx, studentID, dosa, 1)
	require.NoError(t, err)
	orders, err = e.checkout.Checkout(ctx, studentID, req)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "50", orders[0].TotalAmount.String())
	assert.Equal(t, models.PaymentPaid, orders[0].PaymentStatus)
}

func TestCheckout_UnknownPaymentOrder(t *testing.T) {
	e := newEnv(t)
	e.add(t, studentID, "Masala Chai")

	_, err := e.checkout.Checkout(context.Background(), studentID, services.CheckoutRequest{
		PaymentOrderID: "order_forged", PaymentID: "pay_z", Signature: "sig",
	})
	assert.ErrorIs(t, err, services.ErrPaymentFailed)
}

func TestCheckout_RequiresPaymentID(t *testing.T) {
	e := newEnv(t)
	_, err := e.checkout.Checkout(context.Background(), studentID, services.CheckoutRequest{})
	assert.ErrorIs(t, err, services.ErrInvalid)
}

func TestRefunded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "pi_123", "Samosa")

	n, err := e.checkout.Refunded(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, lifecycle.Received, got.Status)
}
