// Package repositories is the persistent store behind the services. Every
// committed write is published as a realtime.Change so live views refetch.
package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/pkg/logger"
	"github.com/foodle-app/foodle/pkg/realtime"
)

// Table names as seen by change subscribers.
const (
	TableOrders    = "orders"
	TableStalls    = "stalls"
	TableMenuItems = "menu_items"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrStaleTransition = errors.New("order status changed concurrently")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// publish reports a committed write. The write already happened, so a
// failed publish is logged, not returned.
func publish(ctx context.Context, pub realtime.Publisher, table string, ev realtime.Event, newRec, oldRec any) {
	if pub == nil {
		return
	}
	c, err := realtime.NewChange(table, ev, newRec, oldRec)
	if err == nil {
		err = pub.Publish(ctx, c)
	}
	if err != nil {
		logger.WithCtx(ctx).Warn("repositories: publish change failed", "table", table, "event", ev, "error", err)
	}
}
