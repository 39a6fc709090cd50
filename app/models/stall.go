package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Availability is what students see on a stall card.
type Availability string

const (
	AvailabilityOpen    Availability = "open"
	AvailabilitySnoozed Availability = "snoozed"
	AvailabilityClosed  Availability = "closed"
)

const defaultSnoozeMessage = "Busy - Back Soon"

// Stall is a vendor's counter. IsOpen and IsSnoozed are independent flags;
// a snoozed stall is open but not taking orders.
type Stall struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Name              string     `gorm:"size:255;not null" json:"name"`
	Description       string     `gorm:"type:text" json:"description,omitempty"`
	ImageURL          string     `gorm:"size:512" json:"image_url,omitempty"`
	VendorID          string     `gorm:"size:36;index" json:"vendor_id"`
	IsOpen            bool       `gorm:"not null" json:"is_open"`
	IsSnoozed         bool       `gorm:"not null" json:"is_snoozed"`
	SnoozeMessage     string     `gorm:"size:255" json:"snooze_message,omitempty"`
	OpeningTime       string     `gorm:"size:5" json:"opening_time,omitempty"`
	ClosingTime       string     `gorm:"size:5" json:"closing_time,omitempty"`
	PrepTimeMins      int        `gorm:"not null" json:"prep_time_mins"`
	OrderCap          int        `gorm:"not null" json:"order_cap"`
	// RazorpayAccountID is the linked account payouts for this stall go to.
	RazorpayAccountID string     `gorm:"size:64" json:"razorpay_account_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	MenuItems         []MenuItem `gorm:"foreignKey:StallID" json:"menu_items,omitempty"`
}

func (s *Stall) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s Stall) Availability() Availability {
	switch {
	case !s.IsOpen:
		return AvailabilityClosed
	case s.IsSnoozed:
		return AvailabilitySnoozed
	default:
		return AvailabilityOpen
	}
}

// StatusLabel is the short text shown next to the stall name.
func (s Stall) StatusLabel() string {
	switch s.Availability() {
	case AvailabilityClosed:
		return "Closed"
	case AvailabilitySnoozed:
		if s.SnoozeMessage != "" {
			return s.SnoozeMessage
		}
		return defaultSnoozeMessage
	default:
		return "Open"
	}
}

// CanOrder reports whether students may place orders right now.
func (s Stall) CanOrder() bool { return s.Availability() == AvailabilityOpen }

// Category groups menu items on the stall page.
type Category string

const (
	CategorySnacks   Category = "Snacks"
	CategoryDrinks   Category = "Drinks"
	CategoryMeals    Category = "Meals"
	CategoryDesserts Category = "Desserts"
	CategoryOther    Category = "Other"
)

var Categories = []Category{CategorySnacks, CategoryDrinks, CategoryMeals, CategoryDesserts, CategoryOther}

type MenuItem struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	StallID     string          `gorm:"size:36;not null;index" json:"stall_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:512" json:"image_url,omitempty"`
	Category    Category        `gorm:"size:20;not null" json:"category"`
	IsAvailable bool            `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Category == "" {
		m.Category = CategoryOther
	}
	return nil
}
