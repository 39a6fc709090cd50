// Package cart holds a student's selected menu items before checkout.
//
// A Cart is owned by one caller and writes through to a Store after every
// mutation, so its contents survive restarts. It is never shared with other
// students or vendors.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidItem = errors.New("cart: item needs an id, a stall and a non-negative price")
	ErrEmpty       = errors.New("cart: cart is empty")
)

// Item is one cart line. Price is the snapshot taken when the item was added.
type Item struct {
	MenuItemID string          `json:"menu_item_id"`
	StallID    string          `json:"stall_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Subtotal is Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Group is the slice of a cart that becomes one order.
type Group struct {
	StallID string          `json:"stall_id"`
	Items   []Item          `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

// Cart is an ordered set of items keyed by menu item id.
type Cart struct {
	mu    sync.RWMutex
	owner string
	store Store
	items []Item
}

// Open loads owner's cart from store, or starts an empty one.
func Open(ctx context.Context, store Store, owner string) (*Cart, error) {
	items, err := store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("cart: load %s: %w", owner, err)
	}
	c := &Cart{owner: owner, store: store}
	for _, it := range items {
		if it.Quantity > 0 {
			c.items = append(c.items, it)
		}
	}
	return c, nil
}

// Owner is the key the cart is persisted under.
func (c *Cart) Owner() string { return c.owner }

// Add increments the quantity of an existing line or inserts item with
// quantity 1. The price of an existing line is kept.
func (c *Cart) Add(ctx context.Context, item Item) error {
	if item.MenuItemID == "" || item.StallID == "" || item.Price.IsNegative() {
		return ErrInvalidItem
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(item.MenuItemID); i >= 0 {
		c.items[i].Quantity++
	} else {
		item.Quantity = 1
		c.items = append(c.items, item)
	}
	return c.persist(ctx)
}

// UpdateQuantity sets an explicit quantity. A quantity ≤ 0 removes the line.
// Unknown ids are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, menuItemID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(menuItemID)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	} else {
		c.items[i].Quantity = quantity
	}
	return c.persist(ctx)
}

// Remove deletes a line. Removing an absent id is a no-op.
func (c *Cart) Remove(ctx context.Context, menuItemID string) error {
	return c.UpdateQuantity(ctx, menuItemID, 0)
}

// Clear empties the cart and drops its persisted copy.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	if err := c.store.Delete(ctx, c.owner); err != nil {
		return fmt.Errorf("cart: clear %s: %w", c.owner, err)
	}
	return nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.items...)
}

// Get returns the line for menuItemID.
func (c *Cart) Get(menuItemID string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(menuItemID); i >= 0 {
		return c.items[i], true
	}
	return Item{}, false
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TotalItems is the sum of quantities.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalAmount is Σ price × quantity.
func (c *Cart) TotalAmount() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sum(c.items)
}

// ItemsForStall returns the lines belonging to stallID.
func (c *Cart) ItemsForStall(stallID string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Item
	for _, it := range c.items {
		if it.StallID == stallID {
			out = append(out, it)
		}
	}
	return out
}

// StallIDs lists the distinct stalls in first-appearance order.
func (c *Cart) StallIDs() []string {
	groups := c.Partition()
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.StallID
	}
	return ids
}

// Partition splits the cart into one group per stall, in the order each
// stall first appears.
func (c *Cart) Partition() []Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Partition(c.items)
}

// Partition groups items by stall in first-appearance order.
func Partition(items []Item) []Group {
	var groups []Group
	pos := map[string]int{}
	for _, it := range items {
		i, ok := pos[it.StallID]
		if !ok {
			i = len(groups)
			pos[it.StallID] = i
			groups = append(groups, Group{StallID: it.StallID})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	for i := range groups {
		groups[i].Total = sum(groups[i].Items)
	}
	return groups
}

func sum(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) index(id string) int {
	for i, it := range c.items {
		if it.MenuItemID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) persist(ctx context.Context) error {
	if len(c.items) == 0 {
		if err := c.store.Delete(ctx, c.owner); err != nil {
			return fmt.Errorf("cart: save %s: %w", c.owner, err)
		}
		return nil
	}
	if err := c.store.Save(ctx, c.owner, append([]Item(nil), c.items...)); err != nil {
		return fmt.Errorf("cart: save %s: %w", c.owner, err)
	}
	return nil
}
