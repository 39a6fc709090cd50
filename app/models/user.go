package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role picks which experience a signed-in user gets.
type Role string

const (
	RoleStudent Role = "student"
	RoleVendor  Role = "vendor"
)

func (r Role) Valid() bool { return r == RoleStudent || r == RoleVendor }

// User is the public profile row. Its ID equals the Account ID.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	Role      Role      `gorm:"size:20;not null;index" json:"role"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url,omitempty"`
	Phone     string    `gorm:"size:32" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account holds sign-in credentials, separate from the profile so a
// credential can exist before (or without) its profile row.
type Account struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255" json:"-"`
	Provider       string    `gorm:"size:32;not null" json:"provider"`
	ProviderUserID string    `gorm:"size:255;index" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Provider == "" {
		a.Provider = "password"
	}
	return nil
}
