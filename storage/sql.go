package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkedlist771/magic-image-private/internal/database"
)

// kvEntry kv_entries 表的一行
type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"column:entry_value;type:text;not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLKV 基于 GORM 的键值后端（sqlite / postgres / mysql）
type SQLKV struct {
	pool *database.PoolManager
}

// NewSQLKV 在连接池上创建后端并迁移 kv_entries 表
func NewSQLKV(ctx context.Context, pool *database.PoolManager) (*SQLKV, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if err := pool.DB().WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &SQLKV{pool: pool}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvEntry
	err := s.pool.DB().WithContext(ctx).Where("entry_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sql get %q: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if err := upsert(s.pool.DB().WithContext(ctx), key, value); err != nil {
		return fmt.Errorf("sql set %q: %w", key, err)
	}
	return nil
}

func upsert(db *gorm.DB, key, value string) error {
	row := kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&row).Error
}

// Update 在事务内读取并写回同一行。postgres / mysql 对该行加 FOR UPDATE 锁，
// sqlite 依赖库级写锁
func (s *SQLKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	var fnErr error
	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		query := tx.Where("entry_key = ?", key)
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var row kvEntry
		err := query.Take(&row).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		value, write, err := fn(row.Value, found)
		if err != nil {
			fnErr = err
			return err
		}
		if !write {
			return nil
		}
		return upsert(tx, key, value)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("sql update %q: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Remove(ctx context.Context, key string) error {
	if err := s.pool.DB().WithContext(ctx).Where("entry_key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("sql remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Available() bool { return true }

var (
	_ KV      = (*SQLKV)(nil)
	_ Updater = (*SQLKV)(nil)
	_ Updater = (*MemoryKV)(nil)
)

// Close 关闭底层连接池
func (s *SQLKV) Close() error {
	return s.pool.Close()
}
