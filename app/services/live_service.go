package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/pkg/lifecycle"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/ordercache"
	"github.com/foodle-app/foodle/pkg/realtime"
)

// Frame types sent to live views.
const (
	FrameOrders   = "orders"
	FrameOrder    = "order"
	FrameStalls   = "stalls"
	FrameAlert    = "alert"
	FrameNewOrder = "new_order"
	FrameError    = "error"
	FrameAck      = "ack"
)

// ReadyVibration is the haptic pattern sent with the ready alert, in ms.
var ReadyVibration = []int{200, 100, 200}

// Alert tells the student their order can be collected.
type Alert struct {
	OrderID    string `json:"order_id"`
	Message    string `json:"message"`
	PickupCode string `json:"pickup_code"`
	Vibrate    []int  `json:"vibrate"`
}

// NewOrderHint asks the vendor console to play its new-order sound.
type NewOrderHint struct {
	OrderID string `json:"order_id,omitempty"`
	Sound   bool   `json:"sound"`
}

// Emit sends one frame to a live client.
type Emit func(realtime.Frame)

// LiveService builds the live views: each one refetches its query whenever
// a matching change is published.
type LiveService struct {
	broker realtime.Broker
	orders *repositories.OrderRepository
	stalls *StallService
	vendor *VendorService
}

func NewLiveService(broker realtime.Broker, orders *repositories.OrderRepository, stalls *StallService, vendor *VendorService) *LiveService {
	return &LiveService{broker: broker, orders: orders, stalls: stalls, vendor: vendor}
}

func orderKey(o models.Order) string        { return o.ID }
func vendorKey(o models.VendorOrder) string { return o.ID }
func stallKey(s StallCard) string           { return s.ID }

func values[T any](entries []ordercache.Entry[T]) []T {
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

// StudentOrders streams the student's order list until ctx ends.
func (s *LiveService) StudentOrders(ctx context.Context, userID string, emit Emit) error {
	view := ordercache.New("student_orders",
		func(ctx context.Context) ([]models.Order, error) { return s.orders.ForStudent(ctx, userID) },
		orderKey,
		ordercache.WithOnChange(func(entries []ordercache.Entry[models.Order]) {
			emit(realtime.Frame{Type: FrameOrders, Data: values(entries)})
		}),
	)
	sub := s.broker.Subscribe(realtime.Filter{Table: repositories.TableOrders, Column: "user_id", Value: userID})
	return view.Watch(ctx, sub)
}

// TrackOrder streams one of the student's orders until ctx ends. The
// transition into ready is followed by an alert frame with the pickup code.
func (s *LiveService) TrackOrder(ctx context.Context, userID, orderID string, emit Emit) error {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return missing(err, "order")
	}
	if o.UserID != userID {
		return ErrNotYourOrder
	}

	var last lifecycle.Status
	view := ordercache.New("track_order",
		func(ctx context.Context) ([]models.Order, error) {
			o, err := s.orders.FindByID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			return []models.Order{o}, nil
		},
		orderKey,
		ordercache.WithOnChange(func(entries []ordercache.Entry[models.Order]) {
			if len(entries) == 0 {
				return
			}
			cur := entries[0].Value
			if last != "" && !lifecycle.ValidHistory([]lifecycle.Status{last, cur.Status}) {
				logger.WithCtx(ctx).Warn("live: order status went backwards, not shown",
					"order_id", cur.ID, "from", last, "to", cur.Status)
				return
			}
			emit(realtime.Frame{Type: FrameOrder, Data: cur})
			if last != "" && last != lifecycle.Ready && cur.Status == lifecycle.Ready {
				emit(realtime.Frame{Type: FrameAlert, Data: Alert{
					OrderID:    cur.ID,
					Message:    "Your order is ready for pickup!",
					PickupCode: cur.PickupCode,
					Vibrate:    ReadyVibration,
				}})
			}
			last = cur.Status
		}),
	)
	sub := s.broker.Subscribe(realtime.Filter{Table: repositories.TableOrders, Column: "id", Value: orderID})
	return view.Watch(ctx, sub)
}

// StallFeed streams the stall list until ctx ends.
func (s *LiveService) StallFeed(ctx context.Context, emit Emit) error {
	view := ordercache.New("stalls", s.stalls.List, stallKey,
		ordercache.WithOnChange(func(entries []ordercache.Entry[StallCard]) {
			emit(realtime.Frame{Type: FrameStalls, Data: values(entries)})
		}),
	)
	sub := s.broker.Subscribe(realtime.Filter{Table: repositories.TableStalls})
	return view.Watch(ctx, sub)
}

// ConsoleCommand is an action sent from the vendor console.
type ConsoleCommand struct {
	Action     string `json:"action"`
	OrderID    string `json:"order_id"`
	PickupCode string `json:"pickup_code,omitempty"`
}

// VendorConsole is one open vendor dashboard. Actions show up immediately
// as pending and are rolled back if the server refuses them.
type VendorConsole struct {
	vendorID string
	stallID  string
	vendor   *VendorService
	broker   realtime.Broker
	view     *ordercache.Cache[models.VendorOrder]
	emit     Emit

	mu   sync.Mutex
	busy map[string]struct{}
}

// OpenConsole prepares the console for vendorID. Call Run to start it.
func (s *LiveService) OpenConsole(ctx context.Context, vendorID string, emit Emit) (*VendorConsole, error) {
	stall, err := s.vendor.Stall(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	c := &VendorConsole{
		vendorID: vendorID,
		stallID:  stall.ID,
		vendor:   s.vendor,
		broker:   s.broker,
		emit:     emit,
		busy:     make(map[string]struct{}),
	}
	c.view = ordercache.New("vendor_console",
		func(ctx context.Context) ([]models.VendorOrder, error) {
			orders, err := s.orders.ActiveForStall(ctx, stall.ID)
			if err != nil {
				return nil, err
			}
			return forVendor(orders), nil
		},
		vendorKey,
		ordercache.WithOnChange(func(entries []ordercache.Entry[models.VendorOrder]) {
			emit(realtime.Frame{Type: FrameOrders, Data: entries})
		}),
		ordercache.WithOnEvent[models.VendorOrder](func(ch realtime.Change) {
			if ch.Event != realtime.Insert {
				return
			}
			id, _ := ch.New["id"].(string)
			emit(realtime.Frame{Type: FrameNewOrder, Data: NewOrderHint{OrderID: id, Sound: true}})
		}),
	)
	return c, nil
}

// StallID is the stall the console shows.
func (c *VendorConsole) StallID() string { return c.stallID }

// Snapshot is the console's current list.
func (c *VendorConsole) Snapshot() []ordercache.Entry[models.VendorOrder] { return c.view.Snapshot() }

// Run keeps the console in sync until ctx ends.
func (c *VendorConsole) Run(ctx context.Context) error {
	sub := c.broker.Subscribe(realtime.Filter{Table: repositories.TableOrders, Column: "stall_id", Value: c.stallID})
	return c.view.Watch(ctx, sub)
}

// Do applies cmd optimistically. The same action on the same order is
// refused while one is in flight. On failure the change is rolled back and
// an error frame is sent.
func (c *VendorConsole) Do(ctx context.Context, cmd ConsoleCommand) error {
	action, err := lifecycle.ParseAction(cmd.Action)
	if err != nil {
		return c.fail(cmd, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	guard := cmd.OrderID + "|" + string(action)
	if !c.enter(guard) {
		return c.fail(cmd, ErrActionInFlight)
	}
	defer c.leave(guard)

	current, ok := c.view.Get(cmd.OrderID)
	if !ok {
		return c.fail(cmd, newError(ErrNotFound, "order is not in the queue"))
	}
	next, err := lifecycle.Next(current.Value.Status, action)
	if err != nil {
		return c.fail(cmd, fmt.Errorf("%w: %v", ErrConflict, err))
	}

	pending, err := c.view.Tentative(cmd.OrderID, func(o models.VendorOrder) models.VendorOrder {
		o.Status = next
		return o
	})
	if errors.Is(err, ordercache.ErrPending) {
		return c.fail(cmd, ErrActionInFlight)
	}
	if err != nil {
		return c.fail(cmd, newError(ErrNotFound, "order is not in the queue"))
	}

	if _, err := c.vendor.Advance(ctx, c.vendorID, cmd.OrderID, action, cmd.PickupCode); err != nil {
		pending.Rollback()
		logger.WithCtx(ctx).Info("console: action rolled back", "order_id", cmd.OrderID, "action", action, "error", err)
		return c.fail(cmd, err)
	}
	pending.Confirm()
	c.emit(realtime.Frame{Type: FrameAck, Data: cmd})
	return nil
}

func (c *VendorConsole) fail(cmd ConsoleCommand, err error) error {
	c.emit(realtime.Frame{Type: FrameError, Data: cmd, Error: err.Error()})
	return err
}

func (c *VendorConsole) enter(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.busy[key]; ok {
		return false
	}
	c.busy[key] = struct{}{}
	return true
}

func (c *VendorConsole) leave(key string) {
	c.mu.Lock()
	delete(c.busy, key)
	c.mu.Unlock()
}
