package services

import (
	"context"
	"fmt"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/notification"
)

// ReadyNotifier tells a student their order can be collected.
type ReadyNotifier interface {
	OrderReady(ctx context.Context, o models.Order)
}

// OrderReadyNotification is sent once an order reaches ready.
type OrderReadyNotification struct {
	Order     models.Order
	StallName string
	channels  []string
}

func (n OrderReadyNotification) Via() []string { return n.channels }

func (n OrderReadyNotification) ToMail() notification.MailData {
	return notification.MailData{
		Subject: fmt.Sprintf("Your order from %s is ready", n.StallName),
		Text: fmt.Sprintf("Your order is ready for pickup at %s.\n\nShow pickup code %s at the counter.\n",
			n.StallName, n.Order.PickupCode),
	}
}

func (n OrderReadyNotification) ToWebhook() notification.WebhookData {
	return notification.WebhookData{Payload: map[string]any{
		"event":    "order.ready",
		"order_id": n.Order.ID,
		"user_id":  n.Order.UserID,
		"stall_id": n.Order.StallID,
		"stall":    n.StallName,
	}}
}

// DispatchNotifier sends ready notifications on the channels it was built
// with, in the background.
type DispatchNotifier struct {
	dispatcher *notification.Dispatcher
	channels   []string
}

// NewDispatchNotifier sends over mail and/or webhook. With neither it does
// nothing.
func NewDispatchNotifier(d *notification.Dispatcher, mail, webhook bool) *DispatchNotifier {
	n := &DispatchNotifier{dispatcher: d}
	if mail {
		n.channels = append(n.channels, notification.ChannelMail)
	}
	if webhook {
		n.channels = append(n.channels, notification.ChannelWebhook)
	}
	return n
}

func (n *DispatchNotifier) OrderReady(ctx context.Context, o models.Order) {
	if len(n.channels) == 0 {
		return
	}
	note := OrderReadyNotification{Order: o, channels: n.channels}
	if o.Stall != nil {
		note.StallName = o.Stall.Name
	}
	address := ""
	if o.User != nil {
		address = o.User.Email
	}
	if err := n.dispatcher.SendAsync(address, note); err != nil {
		logger.WithCtx(ctx).Warn("vendor: ready notification dropped", "order_id", o.ID, "error", err)
	}
}
