package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/foodle-app/foodle/app/repositories"
	"github.com/foodle-app/foodle/pkg/cart"
)

// CartView is a cart as the client renders it.
type CartView struct {
	Items       []cart.Item     `json:"items"`
	Groups      []cart.Group    `json:"groups"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func ViewOf(c *cart.Cart) CartView {
	items := c.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return CartView{
		Items:       items,
		Groups:      c.Partition(),
		TotalItems:  c.TotalItems(),
		TotalAmount: c.TotalAmount(),
	}
}

// CartService edits students' carts. Prices are snapshotted from the menu
// when an item is first added.
type CartService struct {
	store  cart.Store
	stalls *repositories.StallRepository
}

func NewCartService(store cart.Store, stalls *repositories.StallRepository) *CartService {
	return &CartService{store: store, stalls: stalls}
}

// Open loads the student's cart.
func (s *CartService) Open(ctx context.Context, userID string) (*cart.Cart, error) {
	return cart.Open(ctx, s.store, userID)
}

// AddItem adds one of a menu item.
func (s *CartService) AddItem(ctx context.Context, userID, menuItemID string) (*cart.Cart, error) {
	item, err := s.stalls.FindMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, missing(err, "menu item")
	}
	if !item.IsAvailable {
		return nil, ErrItemUnavailable
	}

	c, err := s.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = c.Add(ctx, cart.Item{
		MenuItemID: item.ID,
		StallID:    item.StallID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   1,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetQuantity sets a line's quantity; zero or less removes it.
func (s *CartService) SetQuantity(ctx context.Context, userID, menuItemID string, quantity int) (*cart.Cart, error) {
	c, err := s.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Get(menuItemID); !ok {
		return nil, newError(ErrNotFound, "item is not in the cart")
	}
	if err := c.UpdateQuantity(ctx, menuItemID, quantity); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line. Removing an absent line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, menuItemID string) (*cart.Cart, error) {
	c, err := s.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(ctx, menuItemID); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	c, err := s.Open(ctx, userID)
	if err != nil {
		return err
	}
	return c.Clear(ctx)
}
