package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by every connection so timestamps are written in UTC
// and unique violations surface as gorm.ErrDuplicatedKey
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: newGormLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
	}
}

// newGormLogger reports slow queries and failures. Lookups that find no
// row are expected outcomes and stay quiet.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// OpenDatabase opens the configured store. The sqlite driver treats DB_NAME
// as a file path and is meant for local runs.
func OpenDatabase(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBName + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	utils.LogInfo("Connected to %s database %s", cfg.DBDriver, cfg.DBName)
	return db, nil
}

// Migrate creates or updates the schema and the indexes gorm tags cannot
// express
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	// At most one ACTIVE subscription per user. Partial indexes are
	// supported by both postgres and sqlite.
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_subscriptions_one_active
		ON user_subscriptions (user_id) WHERE status = 'ACTIVE'`).Error
	if err != nil {
		return fmt.Errorf("failed to create active subscription index: %v", err)
	}
	return nil
}

// SeedPlans inserts the default catalog when no plan exists yet
func SeedPlans(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SubscriptionPlan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	plans := DefaultPlans()
	if err := db.Create(&plans).Error; err != nil {
		return fmt.Errorf("failed to seed plans: %v", err)
	}
	utils.LogInfo("Seeded %d subscription plans", len(plans))
	return nil
}
