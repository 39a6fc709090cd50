package migrations

import (
	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/migration"
)

func init() {
	migration.Register("20261015000000_add_stall_razorpay_account", &AddStallRazorpayAccount{})
}

// AddStallRazorpayAccount brings stalls created before payouts up to date.
type AddStallRazorpayAccount struct{}

func (m *AddStallRazorpayAccount) Up(db *gorm.DB) error {
	if db.Migrator().HasColumn(&models.Stall{}, "RazorpayAccountID") {
		return nil
	}
	return db.Migrator().AddColumn(&models.Stall{}, "RazorpayAccountID")
}

func (m *AddStallRazorpayAccount) Down(db *gorm.DB) error {
	if !db.Migrator().HasColumn(&models.Stall{}, "RazorpayAccountID") {
		return nil
	}
	return db.Migrator().DropColumn(&models.Stall{}, "RazorpayAccountID")
}
