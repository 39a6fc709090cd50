package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/pkg/lifecycle"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/metrics"
	"github.com/foodle-app/foodle/pkg/pickup"
)

// StallUpdate holds the stall settings a vendor may change. Nil fields are
// left alone.
type StallUpdate struct {
	IsOpen        *bool
	IsSnoozed     *bool
	SnoozeMessage *string
	PrepTimeMins  *int
	OrderCap      *int

	// RazorpayAccountID is a Razorpay linked account ("acc_..."); empty
	// unlinks the stall.
	RazorpayAccountID *string
}

// MenuItemUpdate holds the menu fields a vendor may change.
type MenuItemUpdate struct {
	IsAvailable *bool
	Price       *decimal.Decimal
}

// VendorService runs a vendor's own stall: settings, menu and the order
// queue.
type VendorService struct {
	stalls   *repositories.StallRepository
	orders   *repositories.OrderRepository
	notifier ReadyNotifier
}

func NewVendorService(stalls *repositories.StallRepository, orders *repositories.OrderRepository, notifier ReadyNotifier) *VendorService {
	return &VendorService{stalls: stalls, orders: orders, notifier: notifier}
}

// Stall is the stall vendorID runs.
func (s *VendorService) Stall(ctx context.Context, vendorID string) (models.Stall, error) {
	stall, err := s.stalls.FindByVendor(ctx, vendorID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Stall{}, ErrNoStall
	}
	return stall, err
}

func (s *VendorService) UpdateStall(ctx context.Context, vendorID string, u StallUpdate) (models.Stall, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return models.Stall{}, err
	}

	fields := map[string]any{}
	if u.IsOpen != nil {
		fields["is_open"] = *u.IsOpen
	}
	if u.IsSnoozed != nil {
		fields["is_snoozed"] = *u.IsSnoozed
	}
	if u.SnoozeMessage != nil {
		fields["snooze_message"] = *u.SnoozeMessage
	}
	if u.PrepTimeMins != nil {
		if *u.PrepTimeMins < 0 {
			return models.Stall{}, newError(ErrInvalid, "prep_time_mins must not be negative")
		}
		fields["prep_time_mins"] = *u.PrepTimeMins
	}
	if u.OrderCap != nil {
		if *u.OrderCap < 0 {
			return models.Stall{}, newError(ErrInvalid, "order_cap must not be negative")
		}
		fields["order_cap"] = *u.OrderCap
	}
	if u.RazorpayAccountID != nil {
		id := strings.TrimSpace(*u.RazorpayAccountID)
		if id != "" && !strings.HasPrefix(id, "acc_") {
			return models.Stall{}, newError(ErrInvalid, "razorpay_account_id must look like acc_XXXXXXXXXXXXXX")
		}
		fields["razorpay_account_id"] = id
	}
	if len(fields) == 0 {
		return stall, nil
	}
	return s.stalls.Update(ctx, stall.ID, fields)
}

// Menu lists every item on the vendor's stall, available or not.
func (s *VendorService) Menu(ctx context.Context, vendorID string) ([]models.MenuItem, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.stalls.Menu(ctx, stall.ID, false)
}

func (s *VendorService) UpdateMenuItem(ctx context.Context, vendorID, itemID string, u MenuItemUpdate) (models.MenuItem, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return models.MenuItem{}, err
	}
	item, err := s.stalls.FindMenuItem(ctx, itemID)
	if err != nil {
		return models.MenuItem{}, missing(err, "menu item")
	}
	if item.StallID != stall.ID {
		return models.MenuItem{}, newError(ErrForbidden, "menu item belongs to another stall")
	}

	fields := map[string]any{}
	if u.IsAvailable != nil {
		fields["is_available"] = *u.IsAvailable
	}
	if u.Price != nil {
		if u.Price.IsNegative() {
			return models.MenuItem{}, newError(ErrInvalid, "price must not be negative")
		}
		fields["price"] = *u.Price
	}
	if len(fields) == 0 {
		return item, nil
	}
	return s.stalls.UpdateMenuItem(ctx, itemID, fields)
}

// ActiveOrders is the vendor's queue, oldest first.
func (s *VendorService) ActiveOrders(ctx context.Context, vendorID string) ([]models.VendorOrder, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ActiveForStall(ctx, stall.ID)
	if err != nil {
		return nil, err
	}
	return forVendor(orders), nil
}

func (s *VendorService) History(ctx context.Context, vendorID string, limit int) ([]models.VendorOrder, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.HistoryForStall(ctx, stall.ID, limit)
	if err != nil {
		return nil, err
	}
	return forVendor(orders), nil
}

func forVendor(orders []models.Order) []models.VendorOrder {
	out := make([]models.VendorOrder, len(orders))
	for i, o := range orders {
		out[i] = o.ForVendor()
	}
	return out
}

// Advance applies action to one of the vendor's orders. Completing needs
// the code the student shows at the counter. Reaching ready notifies the
// student.
func (s *VendorService) Advance(ctx context.Context, vendorID, orderID string, action lifecycle.Action, pickupCode string) (models.VendorOrder, error) {
	stall, err := s.Stall(ctx, vendorID)
	if err != nil {
		return models.VendorOrder{}, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.VendorOrder{}, missing(err, "order")
	}
	if order.StallID != stall.ID {
		return models.VendorOrder{}, ErrNotYourOrder
	}

	next, err := lifecycle.Next(order.Status, action)
	if err != nil {
		return models.VendorOrder{}, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if action == lifecycle.Complete && !pickup.Match(order.PickupCode, pickupCode) {
		return models.VendorOrder{}, ErrPickupCodeMismatch
	}

	updated, err := s.orders.Transition(ctx, order.ID, order.Status, next)
	if errors.Is(err, repositories.ErrStaleTransition) {
		return models.VendorOrder{}, ErrStaleTransition
	}
	if err != nil {
		return models.VendorOrder{}, err
	}

	metrics.OrderTransitions.WithLabelValues(string(order.Status), string(next)).Inc()
	logger.WithCtx(ctx).Info("vendor: order advanced",
		"order_id", order.ID, "stall_id", stall.ID, "from", order.Status, "to", next)

	if next == lifecycle.Ready && s.notifier != nil {
		s.notifier.OrderReady(ctx, updated)
	}
	return updated.ForVendor(), nil
}
