package db

import (
	"assistant-api/internal/db/migrations"
	"assistant-api/internal/logger"
	"assistant-api/internal/models"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres database, sizes the pool and applies pending migrations.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	gormLogger := gormlogger.New(
		logger.Logger,
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&models.MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %v", err)
	}
	if err := runMigrations(db, migrations.GetMigrations()); err != nil {
		return nil, err
	}
	return db, nil
}

func runMigrations(db *gorm.DB, migrationsList []migrations.Migration) error {
	for _, migration := range migrationsList {
		var record models.MigrationRecord
		result := db.Where("name = ?", migration.Name).First(&record)

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.LogEvent(logrus.InfoLevel, "Running migration", logrus.Fields{"migration": migration.Name})

			err := db.Transaction(func(tx *gorm.DB) error {
				if err := migration.Run(tx); err != nil {
					return err
				}

				return tx.Create(&models.MigrationRecord{Name: migration.Name, AppliedAt: time.Now().UTC()}).Error
			})

			if err != nil {
				return fmt.Errorf("migration '%s' failed: %v", migration.Name, err)
			}
		} else if result.Error != nil {
			return fmt.Errorf("failed to check migration status: %v", result.Error)
		}
	}

	return nil
}
