// Package database opens the gorm connection shared by repositories.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/metrics"
)

var DB *gorm.DB

// Connect opens the configured database into DB.
func Connect(ctx context.Context) error {
	db, err := Open(ctx, config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to driver/dsn, configures the pool and registers query
// timing callbacks. Duplicate-key errors are translated to
// gorm.ErrDuplicatedKey.
func Open(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if driver == "sqlite" {
		// One writer; in-memory databases vanish with their last connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		sqlDB.SetConnMaxIdleTime(2 * time.Minute)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	if err := registerTiming(db); err != nil {
		return nil, err
	}
	return db, nil
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

const startKey = "foodle:query_start"

// registerTiming feeds metrics.DBQueryDuration from gorm callbacks.
func registerTiming(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(startKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if v, ok := tx.InstanceGet(startKey); ok {
				if start, ok := v.(time.Time); ok {
					metrics.ObserveDBQuery(op, start)
				}
			}
		}
	}

	cb := db.Callback()
	steps := []error{
		cb.Query().Before("gorm:query").Register("foodle:before_query", before),
		cb.Query().After("gorm:query").Register("foodle:after_query", after("select")),
		cb.Create().Before("gorm:create").Register("foodle:before_create", before),
		cb.Create().After("gorm:create").Register("foodle:after_create", after("insert")),
		cb.Update().Before("gorm:update").Register("foodle:before_update", before),
		cb.Update().After("gorm:update").Register("foodle:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("foodle:before_delete", before),
		cb.Delete().After("gorm:delete").Register("foodle:after_delete", after("delete")),
	}
	for _, err := range steps {
		if err != nil {
			return fmt.Errorf("database: register callbacks: %w", err)
		}
	}
	return nil
}
