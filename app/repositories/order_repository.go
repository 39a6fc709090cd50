package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/lifecycle"
	"github.com/foodle-app/foodle/pkg/realtime"
)

// ActiveStatuses are the statuses a vendor queue shows.
var ActiveStatuses = []lifecycle.Status{lifecycle.Received, lifecycle.Preparing, lifecycle.Ready}

// OrderRepository stores orders. Status changes go through Transition so
// concurrent vendors never clobber each other.
type OrderRepository struct {
	db  *gorm.DB
	pub realtime.Publisher
	now func() time.Time
}

func NewOrderRepository(db *gorm.DB, pub realtime.Publisher) *OrderRepository {
	return &OrderRepository{db: db, pub: pub, now: time.Now}
}

// CreateBatch inserts orders in one transaction: all of them or none.
func (r *OrderRepository) CreateBatch(ctx context.Context, orders []*models.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			if err := o.Validate(); err != nil {
				return err
			}
			if err := tx.Omit("User", "Stall").Create(o).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}
	for _, o := range orders {
		publish(ctx, r.pub, TableOrders, realtime.Insert, o, nil)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Preload("User").Preload("Stall").Where("id = ?", id).First(&o).Error
	return o, translate(err)
}

// FindByPaymentID returns the orders one payment already funded.
func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Stall").
		Where("payment_id = ?", paymentID).
		Order("created_at asc").
		Find(&orders).Error
	return orders, translate(err)
}

// ForStudent lists a student's orders, newest first.
func (r *OrderRepository) ForStudent(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("Stall").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, translate(err)
}

// ActiveForStall is a stall's queue, oldest first.
func (r *OrderRepository) ActiveForStall(ctx context.Context, stallID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Preload("User").
		Where("stall_id = ? AND status IN ?", stallID, ActiveStatuses).
		Order("created_at asc").
		Find(&orders).Error
	return orders, translate(err)
}

// HistoryForStall lists finished orders, newest first.
func (r *OrderRepository) HistoryForStall(ctx context.Context, stallID string, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("User").
		Where("stall_id = ? AND status IN ?", stallID, []lifecycle.Status{lifecycle.Completed, lifecycle.Cancelled}).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var orders []models.Order
	err := q.Find(&orders).Error
	return orders, translate(err)
}

// CountActive counts orders still in a stall's queue.
func (r *OrderRepository) CountActive(ctx context.Context, stallID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("stall_id = ? AND status IN ?", stallID, ActiveStatuses).
		Count(&n).Error
	return n, translate(err)
}

// Transition moves an order from one status to the next. The row only
// changes if it is still in from; otherwise ErrStaleTransition. The status
// timestamp is written only if it is unset.
func (r *OrderRepository) Transition(ctx context.Context, id string, from, to lifecycle.Status) (models.Order, error) {
	if !lifecycle.CanTransition(from, to) {
		return models.Order{}, lifecycle.ErrInvalidTransition
	}
	old, err := r.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	at := r.now().UTC()
	fields := map[string]any{"status": to, "updated_at": at}
	if col := models.StampColumn(to); col != "" {
		fields[col] = gorm.Expr("COALESCE("+col+", ?)", at)
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return models.Order{}, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Order{}, ErrStaleTransition
	}

	updated, err := r.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	old.Status = from
	publish(ctx, r.pub, TableOrders, realtime.Update, updated, old)
	return updated, nil
}

// SetPaymentStatus updates every order funded by paymentID and returns how
// many changed.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus) (int, error) {
	orders, err := r.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, o := range orders {
		if o.PaymentStatus == status {
			continue
		}
		err := r.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ?", o.ID).
			Update("payment_status", status).Error
		if err != nil {
			return n, translate(err)
		}
		updated := o
		updated.PaymentStatus = status
		publish(ctx, r.pub, TableOrders, realtime.Update, updated, o)
		n++
	}
	return n, nil
}
