package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/foodle-app/foodle/pkg/lifecycle"
)

func init() {
	// Prices travel as JSON numbers, like the rest of the API.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentStatus is independent of the preparation status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	ErrNoLineItems        = errors.New("order: at least one line item is required")
	ErrInvalidLineItem    = errors.New("order: line items need quantity ≥ 1 and price ≥ 0")
	ErrMissingPickupCode  = errors.New("order: pickup code is required")
	ErrTotalMismatch      = errors.New("order: total does not match line items")
	ErrMissingAssociation = errors.New("order: user and stall are required")
)

// LineItem is a menu item as it was priced when the order was placed.
type LineItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineItems is stored as a JSON column.
type LineItems []LineItem

func (ls LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range ls {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Order is one student's order at one stall.
type Order struct {
	ID                  string           `gorm:"primaryKey;size:36" json:"id"`
	UserID              string           `gorm:"size:36;not null;index" json:"user_id"`
	StallID             string           `gorm:"size:36;not null;index" json:"stall_id"`
	Items               LineItems        `gorm:"type:text;serializer:json;not null" json:"items"`
	TotalAmount         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status              lifecycle.Status `gorm:"size:20;not null;index" json:"status"`
	PickupCode          string           `gorm:"column:otp_code;size:8;not null" json:"otp_code"`
	PaymentStatus       PaymentStatus    `gorm:"size:20;not null" json:"payment_status"`
	PaymentProvider     string           `gorm:"size:20" json:"payment_provider,omitempty"`
	PaymentOrderID      string           `gorm:"size:64" json:"payment_order_id,omitempty"`
	PaymentID           string           `gorm:"size:64;index" json:"payment_id,omitempty"`
	SpecialInstructions string           `gorm:"type:text" json:"special_instructions,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	AcceptedAt          *time.Time       `json:"accepted_at,omitempty"`
	ReadyAt             *time.Time       `json:"ready_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	CancelledAt         *time.Time       `json:"cancelled_at,omitempty"`
	UpdatedAt           time.Time        `json:"updated_at"`

	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Stall *Stall `gorm:"foreignKey:StallID" json:"stall,omitempty"`
}

// NewOrder builds a received, unpaid order and checks its invariants.
func NewOrder(userID, stallID string, items LineItems, instructions, pickupCode string) (*Order, error) {
	o := &Order{
		ID:                  uuid.NewString(),
		UserID:              userID,
		StallID:             stallID,
		Items:               append(LineItems(nil), items...),
		TotalAmount:         items.Total(),
		Status:              lifecycle.Initial,
		PickupCode:          pickupCode,
		PaymentStatus:       PaymentPending,
		SpecialInstructions: instructions,
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the creation-time invariants.
func (o *Order) Validate() error {
	if o.UserID == "" || o.StallID == "" {
		return ErrMissingAssociation
	}
	if len(o.Items) == 0 {
		return ErrNoLineItems
	}
	for _, l := range o.Items {
		if l.Quantity < 1 || l.Price.IsNegative() {
			return fmt.Errorf("%w: %q", ErrInvalidLineItem, l.Name)
		}
	}
	if o.PickupCode == "" {
		return ErrMissingPickupCode
	}
	if !o.TotalAmount.Equal(o.Items.Total()) {
		return fmt.Errorf("%w: %s != %s", ErrTotalMismatch, o.TotalAmount, o.Items.Total())
	}
	return nil
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// MarkPaid records the payment that funded the order.
func (o *Order) MarkPaid(provider, paymentOrderID, paymentID string) {
	o.PaymentStatus = PaymentPaid
	o.PaymentProvider = provider
	o.PaymentOrderID = paymentOrderID
	o.PaymentID = paymentID
}

// Stamp sets the timestamp that belongs to status, unless it is already set.
// It returns true when a timestamp was written.
func (o *Order) Stamp(status lifecycle.Status, at time.Time) bool {
	var field **time.Time
	switch status {
	case lifecycle.Preparing:
		field = &o.AcceptedAt
	case lifecycle.Ready:
		field = &o.ReadyAt
	case lifecycle.Completed:
		field = &o.CompletedAt
	case lifecycle.Cancelled:
		field = &o.CancelledAt
	default:
		return false
	}
	if *field != nil {
		return false
	}
	t := at.UTC()
	*field = &t
	return true
}

// StampColumn is the column Stamp writes for status, or "".
func StampColumn(status lifecycle.Status) string {
	switch status {
	case lifecycle.Preparing:
		return "accepted_at"
	case lifecycle.Ready:
		return "ready_at"
	case lifecycle.Completed:
		return "completed_at"
	case lifecycle.Cancelled:
		return "cancelled_at"
	}
	return ""
}

// Transition applies action in memory: status and its timestamp.
func (o *Order) Transition(action lifecycle.Action, at time.Time) (lifecycle.Status, error) {
	next, err := lifecycle.Next(o.Status, action)
	if err != nil {
		return "", err
	}
	o.Status = next
	o.Stamp(next, at)
	return next, nil
}

// VendorOrder is an order as the stall sees it: no pickup code, since the
// student reads it out at the counter.
type VendorOrder struct {
	ID                  string           `json:"id"`
	StallID             string           `json:"stall_id"`
	CustomerName        string           `json:"customer_name,omitempty"`
	Items               LineItems        `json:"items"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	Status              lifecycle.Status `json:"status"`
	PaymentStatus       PaymentStatus    `json:"payment_status"`
	SpecialInstructions string           `json:"special_instructions,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	AcceptedAt          *time.Time       `json:"accepted_at,omitempty"`
	ReadyAt             *time.Time       `json:"ready_at,omitempty"`
}

func (o Order) ForVendor() VendorOrder {
	v := VendorOrder{
		ID:                  o.ID,
		StallID:             o.StallID,
		Items:               o.Items,
		TotalAmount:         o.TotalAmount,
		Status:              o.Status,
		PaymentStatus:       o.PaymentStatus,
		SpecialInstructions: o.SpecialInstructions,
		CreatedAt:           o.CreatedAt,
		AcceptedAt:          o.AcceptedAt,
		ReadyAt:             o.ReadyAt,
	}
	if o.User != nil {
		v.CustomerName = o.User.Name
	}
	return v
}
