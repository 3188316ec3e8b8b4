package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one row of the chain's key-value table. Values are JSON blobs;
// the schema never changes when entity shapes do.
type Entry struct {
	Key   string `gorm:"primaryKey;size:512"`
	Value []byte `gorm:"type:bytea;not null"`
}

type PostgresKV struct {
	db *gorm.DB
}

func NewPostgresKV(dsn string) (*PostgresKV, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresKV{db: db}, nil
}

// NewGormKV wraps an already-open gorm handle; used by tests.
func NewGormKV(db *gorm.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

func (p *PostgresKV) Migrate() error {
	if err := p.db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate table: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so the node layer can host its own
// tables (events, cursors, accounts, blobs) on the same connection.
func (p *PostgresKV) DB() *gorm.DB {
	return p.db
}

func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := p.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting entry %q: %w", key, err)
	}
	return entry.Value, nil
}

func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("putting entry %q: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	err := p.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
	if err != nil {
		return fmt.Errorf("deleting entry %q: %w", key, err)
	}
	return nil
}
