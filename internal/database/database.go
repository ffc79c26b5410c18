package database

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/libraria-al/libraria/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the sqlite database and migrates the engine's schema.
//
// The DSN forces immediate transactions: every gorm transaction takes the
// write lock at BEGIN, so check-then-act sequences (quota admission,
// inventory claims) are serialized instead of upgrading to a write lock
// mid-transaction. _busy_timeout makes concurrent writers queue rather than
// fail.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath + "?_busy_timeout=5000&_journal=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.SubscriptionGrant{},
		&entities.RentalLease{},
		&entities.AccessEvent{},
		&entities.SettlementRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
