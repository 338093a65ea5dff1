package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// DB is the global database instance
var DB *gorm.DB

// Models lists every table managed by AutoMigrate, parents first
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.RefreshToken{},
		&models.APIKey{},
		&models.Project{},
		&models.Generation{},
		&models.Subscription{},
		&models.Payment{},
		&models.ActivityLog{},
	}
}

// InitDB opens the connection pool and migrates the schema
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
		return nil, fmt.Errorf("missing required database configuration. Please check your .env file")
	}

	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// gen_random_uuid() lives in pgcrypto before PostgreSQL 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Monthly quota counts scan generations by owner and creation time
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations(user_id, created_at)").Error; err != nil {
		logrus.Warnf("Failed to create index on generations (user_id, created_at): %v", err)
	}

	DB = db

	logrus.Info("Database connection established and migrations completed")
	return db, nil
}

// GetDB returns the global database instance
func GetDB() *gorm.DB {
	return DB
}

// Close releases the connection pool
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrus.Warnf("Failed to get database handle for close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.Warnf("Failed to close database: %v", err)
	}
}
