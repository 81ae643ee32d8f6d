// Package store provides GORM-backed persistence for the relationship engine.
//
// Uniqueness rules (one pending request per pair, one conversation per pair,
// one engagement per request) live in database indexes, not application
// check-then-act, so concurrent writers race at the store and exactly one
// wins. State transitions are conditional UPDATEs checked via RowsAffected.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mentorloop/relationship-engine/internal/model"
)

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates all engine tables and indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.ConnectionRequest{},
		&model.Conversation{},
		&model.UnreadCount{},
		&model.Message{},
		&model.MentorshipEngagement{},
		&model.Session{},
	)
}
