package migrations

import (
	"gorm.io/gorm"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_users_tables", &CreateUsersTables{})
	migration.Register("20260301000001_create_stalls_tables", &CreateStallsTables{})
	migration.Register("20260301000002_create_orders_table", &CreateOrdersTable{})
}

type CreateUsersTables struct{}

func (m *CreateUsersTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Account{}, &models.User{})
}

func (m *CreateUsersTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.User{}, &models.Account{})
}

type CreateStallsTables struct{}

func (m *CreateStallsTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Stall{}, &models.MenuItem{})
}

func (m *CreateStallsTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.MenuItem{}, &models.Stall{})
}

type CreateOrdersTable struct{}

// Up also adds the composite index the vendor queue query runs on.
func (m *CreateOrdersTable) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}); err != nil {
		return err
	}
	if db.Migrator().HasIndex(&models.Order{}, "idx_orders_stall_status_created") {
		return nil
	}
	return db.Exec("CREATE INDEX idx_orders_stall_status_created ON orders (stall_id, status, created_at)").Error
}

func (m *CreateOrdersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&models.Order{})
}
