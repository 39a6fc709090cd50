package services

import (
	"context"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/app/repositories"
)

// OrderService is the student's view of their own orders.
type OrderService struct {
	orders *repositories.OrderRepository
}

func NewOrderService(orders *repositories.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// ForStudent lists the student's orders, newest first.
func (s *OrderService) ForStudent(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ForStudent(ctx, userID)
}

// Get returns one of the student's orders.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return models.Order{}, missing(err, "order")
	}
	if o.UserID != userID {
		return models.Order{}, ErrNotYourOrder
	}
	return o, nil
}
