package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqliteDriver "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type messageRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index;size:128"`
	Role      string `gorm:"size:16"`
	Content   string
	SentAt    time.Time
}

func (messageRow) TableName() string { return "chat_messages" }

// GormStore keeps history in sqlite or postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := openGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	store := &GormStore{db: gormDB}
	if err := store.db.AutoMigrate(&messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return store, nil
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	dsn = strings.TrimSpace(dsn)

	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "shipagent.db"
		}
		if err := ensureSQLiteDirectory(dsn); err != nil {
			return nil, err
		}
		return gorm.Open(sqliteDriver.Open(dsn), &gorm.Config{})
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("dsn is required for driver %q", driver)
		}
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}
}

func ensureSQLiteDirectory(dsn string) error {
	if strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file::memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite db dir: %w", err)
	}
	return nil
}

func (s *GormStore) Append(ctx context.Context, sessionID string, rec Record) error {
	row := messageRow{
		SessionID: sessionID,
		Role:      rec.Role,
		Content:   rec.Content,
		SentAt:    rec.Timestamp.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	query := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []messageRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Newest first from the query, flip back to chronological order.
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[len(rows)-1-i] = Record{
			Role:      row.Role,
			Content:   row.Content,
			Timestamp: row.SentAt,
		}
	}
	return records, nil
}

func (s *GormStore) Clear(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&messageRow{}).Error
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
