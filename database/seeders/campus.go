package seeders

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/auth"
)

func init() {
	Register("accounts", SeedAccounts)
	Register("stalls", SeedStalls)
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "foodle123"

type demoAccount struct {
	id, email, name string
	role            models.Role
}

var demoAccounts = []demoAccount{
	{"00000000-0000-4000-8000-000000000001", "student@campus.test", "Demo Student", models.RoleStudent},
	{"00000000-0000-4000-8000-000000000101", "dosa@campus.test", "Dosa Corner", models.RoleVendor},
	{"00000000-0000-4000-8000-000000000102", "chai@campus.test", "Chai Point", models.RoleVendor},
}

func SeedAccounts(db *gorm.DB) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	for _, a := range demoAccounts {
		acct := models.Account{ID: a.id, Email: a.email, PasswordHash: hash, Provider: "password"}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&acct).Error; err != nil {
			return err
		}
		user := models.User{ID: a.id, Email: a.email, Name: a.name, Role: a.role}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func SeedStalls(db *gorm.DB) error {
	stalls := []models.Stall{
		{
			ID: "10000000-0000-4000-8000-000000000001", Name: "Dosa Corner",
			Description: "South Indian breakfast all day", VendorID: demoAccounts[1].id,
			IsOpen: true, OpeningTime: "08:00", ClosingTime: "20:00", PrepTimeMins: 12,
			MenuItems: []models.MenuItem{
				{Name: "Masala Dosa", Price: price("50"), Category: models.CategoryMeals, IsAvailable: true},
				{Name: "Idli Vada", Price: price("40"), Category: models.CategorySnacks, IsAvailable: true},
				{Name: "Filter Coffee", Price: price("20"), Category: models.CategoryDrinks, IsAvailable: true},
			},
		},
		{
			ID: "10000000-0000-4000-8000-000000000002", Name: "Chai Point",
			Description: "Tea, coffee and quick bites", VendorID: demoAccounts[2].id,
			IsOpen: true, OpeningTime: "07:30", ClosingTime: "22:00", PrepTimeMins: 5,
			MenuItems: []models.MenuItem{
				{Name: "Masala Chai", Price: price("15"), Category: models.CategoryDrinks, IsAvailable: true},
				{Name: "Samosa", Price: price("18"), Category: models.CategorySnacks, IsAvailable: true},
				{Name: "Gulab Jamun", Price: price("30"), Category: models.CategoryDesserts, IsAvailable: false},
			},
		},
	}

	for i := range stalls {
		var n int64
		if err := db.Model(&models.Stall{}).Where("id = ?", stalls[i].ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if err := db.Create(&stalls[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
