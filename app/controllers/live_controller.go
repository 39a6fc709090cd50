package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/realtime"
)

const keepAlive = 25 * time.Second

// LiveController serves the realtime views over websockets and, for the
// public stall list, server-sent events.
type LiveController struct {
	live   *services.LiveService
	orders *services.OrderService
}

func NewLiveController(live *services.LiveService, orders *services.OrderService) *LiveController {
	return &LiveController{live: live, orders: orders}
}

// socket upgrades the request and returns a context that ends when the
// client goes away.
func socket(c *ctx.Context) (*realtime.Conn, context.Context, context.CancelFunc, bool) {
	conn, err := realtime.Upgrade(c.W, c.R)
	if err != nil {
		logger.WithCtx(c.Context()).Warn("live: upgrade failed", "error", err)
		return nil, nil, nil, false
	}
	wctx, cancel := context.WithCancel(context.WithoutCancel(c.Context()))
	go func() {
		<-conn.Done()
		cancel()
	}()
	return conn, wctx, cancel, true
}

func sender(conn *realtime.Conn) services.Emit {
	return func(f realtime.Frame) { _ = conn.Send(f) }
}

func closeWith(conn *realtime.Conn, err error) {
	if err != nil {
		_ = conn.Send(realtime.Frame{Type: services.FrameError, Error: err.Error()})
	}
	conn.Close()
}

// StudentOrders streams the student's order list.
func (h *LiveController) StudentOrders(c *ctx.Context) {
	userID := c.UserID()
	conn, wctx, cancel, ok := socket(c)
	if !ok {
		return
	}
	defer cancel()
	closeWith(conn, h.live.StudentOrders(wctx, userID, sender(conn)))
}

// TrackOrder streams one order and the ready alert.
func (h *LiveController) TrackOrder(c *ctx.Context) {
	userID, orderID := c.UserID(), c.Param("id")
	if _, err := h.orders.Get(c.Context(), userID, orderID); err != nil {
		fail(c, err)
		return
	}
	conn, wctx, cancel, ok := socket(c)
	if !ok {
		return
	}
	defer cancel()
	closeWith(conn, h.live.TrackOrder(wctx, userID, orderID, sender(conn)))
}

// VendorConsole streams the stall's queue and applies actions sent by the
// client as {"action","order_id","pickup_code"} messages.
func (h *LiveController) VendorConsole(c *ctx.Context) {
	vendorID := c.UserID()

	var conn *realtime.Conn
	console, err := h.live.OpenConsole(c.Context(), vendorID, func(f realtime.Frame) {
		if conn != nil {
			_ = conn.Send(f)
		}
	})
	if err != nil {
		fail(c, err)
		return
	}

	conn, wctx, cancel, ok := socket(c)
	if !ok {
		return
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- console.Run(wctx) }()

	for {
		select {
		case err := <-done:
			closeWith(conn, err)
			return
		case msg := <-conn.Inbound():
			var cmd services.ConsoleCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				_ = conn.Send(realtime.Frame{Type: services.FrameError, Error: "malformed command"})
				continue
			}
			go func() {
				if err := console.Do(wctx, cmd); err != nil && !errors.Is(err, context.Canceled) {
					logger.WithCtx(wctx).Info("live: console action refused", "order_id", cmd.OrderID, "action", cmd.Action, "error", err)
				}
			}()
		}
	}
}

// StallFeed streams stall availability as server-sent events.
func (h *LiveController) StallFeed(c *ctx.Context) {
	stream := realtime.NewStream(c.W, c.R)
	if stream == nil {
		return
	}
	sctx, cancel := context.WithCancel(c.Context())
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(keepAlive)
		defer t.Stop()
		for {
			select {
			case <-sctx.Done():
				return
			case <-t.C:
				stream.Comment("keepalive")
			}
		}
	}()

	err := h.live.StallFeed(sctx, func(f realtime.Frame) {
		_ = stream.Send(f.Type, f.Data)
	})
	if err != nil {
		_ = stream.Send(services.FrameError, map[string]string{"error": err.Error()})
	}
}
