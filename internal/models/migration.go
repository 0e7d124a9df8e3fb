package models

import "time"

// MigrationRecord marks a named schema migration as applied.
type MigrationRecord struct {
	ID        uint      `gorm:"primarykey"`
	Name      string    `gorm:"uniqueIndex"`
	AppliedAt time.Time `gorm:"not null"`
}
