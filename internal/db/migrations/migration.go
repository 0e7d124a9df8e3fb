package migrations

import (
	"assistant-api/internal/models"

	"gorm.io/gorm"
)

type Migration struct {
	Name string
	Run  func(*gorm.DB) error
}

// GetMigrations lists every schema change in the order it must be applied.
// Names are recorded once applied and must never change.
func GetMigrations() []Migration {
	return []Migration{
		{
			Name: "CreateUsageRecordsTable",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.UsageRecord{})
			},
		},
		{
			Name: "CreateRequestLogsTable",
			Run: func(db *gorm.DB) error {
				return db.AutoMigrate(&models.RequestLog{})
			},
		},
		{
			Name: "AddUsageRecordsModelTimestampIndex",
			Run: func(db *gorm.DB) error {
				return db.Exec("CREATE INDEX IF NOT EXISTS idx_usage_records_model_timestamp ON usage_records(model, timestamp DESC)").Error
			},
		},
	}
}
