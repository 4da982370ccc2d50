// Package db provides the GORM-based local store for a checkout register.
// It uses the pure-Go SQLite driver so the register binary needs no cgo.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bourse-pos/bourse/internal/models"
)

// ErrStorageUnavailable is returned when the local store cannot be opened or
// migrated. Offline mode is unusable until it is fixed.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// ErrInvalidTransition is returned when a sale is not in the status a
// transition requires.
var ErrInvalidTransition = errors.New("invalid sale status transition")

// DB wraps the GORM database connection with register-specific operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
// Opening an existing database is safe: migrations and seeds are idempotent.
func New(cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", ErrStorageUnavailable, err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql.DB: %w", ErrStorageUnavailable, err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrStorageUnavailable, err)
	}

	wrapped := &DB{DB: db, path: cfg.Path}

	if err := wrapped.migrate(); err != nil {
		_ = wrapped.Close()
		return nil, fmt.Errorf("%w: migrate: %w", ErrStorageUnavailable, err)
	}

	if err := wrapped.seedSyncMeta(); err != nil {
		_ = wrapped.Close()
		return nil, fmt.Errorf("%w: seed sync meta: %w", ErrStorageUnavailable, err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.Article{},
		&models.PendingSale{},
		&models.SyncMeta{},
	)
}

// seedSyncMeta inserts default sync metadata if not present.
func (db *DB) seedSyncMeta() error {
	defaults := []models.SyncMeta{
		{Key: models.SyncMetaSchemaVersion, Value: models.CurrentSchemaVersion},
		{Key: models.SyncMetaLastCatalogRefresh, Value: ""},
		{Key: models.SyncMetaCatalogSize, Value: "0"},
		{Key: models.SyncMetaLastSync, Value: ""},
	}

	for _, meta := range defaults {
		result := db.Where("key = ?", meta.Key).FirstOrCreate(&meta)
		if result.Error != nil {
			return result.Error
		}
	}

	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithContext returns a handle whose queries are bound to ctx.
func (db *DB) WithContext(ctx context.Context) *DB {
	return &DB{DB: db.DB.WithContext(ctx), path: db.path}
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
// If the callback returns nil, the transaction is committed.
func (db *DB) Transaction(fc func(tx *DB) error) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		wrappedTx := &DB{DB: tx, path: db.path}
		return fc(wrappedTx)
	})
}

// Stats summarizes the local store for status displays.
type Stats struct {
	Articles  int64
	Sales     models.SaleStats
	SizeBytes int64
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats

	articles, err := db.CountArticles()
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	stats.Articles = articles

	sales, err := db.SaleStats()
	if err != nil {
		return nil, fmt.Errorf("sale stats: %w", err)
	}
	stats.Sales = *sales

	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	return &stats, nil
}
