// Package store persists processing history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/docuscan/internal/config"
)

// Store provides access to the history database.
type Store struct {
	db *gorm.DB
}

// New opens (and migrates) the SQLite history database.
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "docuscan.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(4)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm handle. Used by tests.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ScanRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts a history record, assigning an ID if absent.
func (s *Store) Record(rec *ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// ListRecent returns the most recent records, newest first.
func (s *Store) ListRecent(limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []ScanRecord
	err := s.db.Order("completed_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
