package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// Ensure ConfigStore implements store.ConfigStore
var _ store.ConfigStore = (*ConfigStore)(nil)

// ConfigStore implements store.ConfigStore using GORM
type ConfigStore struct {
	db *gorm.DB
}

// NewConfigStore creates a new ConfigStore
func NewConfigStore(db *gorm.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// scoped restricts q to the rows owned by owner. NULL never compares equal,
// so the global scope needs IS NULL rather than "= NULL".
func scoped(q *gorm.DB, owner model.Scope) *gorm.DB {
	if id, ok := owner.TenantID(); ok {
		return q.Where("tenant_id = ?", id)
	}
	return q.Where("tenant_id IS NULL")
}

// conflictTarget names the partial unique index the upsert lands on.
func conflictTarget(owner model.Scope, columns ...string) clause.OnConflict {
	cols := make([]clause.Column, 0, len(columns)+1)
	for _, c := range columns {
		cols = append(cols, clause.Column{Name: c})
	}
	where := "tenant_id IS NULL"
	if !owner.IsGlobal() {
		cols = append(cols, clause.Column{Name: "tenant_id"})
		where = "tenant_id IS NOT NULL"
	}
	return clause.OnConflict{
		Columns:     cols,
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: where}}},
	}
}

// FindOne returns the exact row for key and owner.
func (s *ConfigStore) FindOne(ctx context.Context, key string, owner model.Scope) (*model.ConfigEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	var entry model.ConfigEntry
	err := scoped(s.db.WithContext(ctx).Where("setting_key = ?", key), owner).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap("find config entry", err)
	}
	return &entry, nil
}

// UpsertOne inserts or replaces the value in one INSERT ... ON CONFLICT
// statement, then reads the row back inside the same transaction.
func (s *ConfigStore) UpsertOne(ctx context.Context, key string, owner model.Scope, value model.Document) (*model.ConfigEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if value == nil {
		value = model.Document{}
	}

	var stored model.ConfigEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := model.ConfigEntry{
			Key:       key,
			TenantID:  owner.Column(),
			Value:     value,
			UpdatedAt: time.Now().UTC(),
		}
		upsert := conflictTarget(owner, "setting_key")
		upsert.DoUpdates = clause.AssignmentColumns([]string{"value", "updated_at"})
		if err := tx.Clauses(upsert).Create(&entry).Error; err != nil {
			return err
		}
		return scoped(tx.Where("setting_key = ?", key), owner).First(&stored).Error
	})
	if err != nil {
		return nil, store.Wrap("upsert config entry", err)
	}
	return &stored, nil
}

// DeleteOne removes the row for key and owner.
func (s *ConfigStore) DeleteOne(ctx context.Context, key string, owner model.Scope) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	tx := scoped(s.db.WithContext(ctx).Where("setting_key = ?", key), owner).Delete(&model.ConfigEntry{})
	if tx.Error != nil {
		return false, store.Wrap("delete config entry", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// ListEntries returns matching rows ordered by key, global row first.
func (s *ConfigStore) ListEntries(ctx context.Context, filter store.EntryFilter) ([]model.ConfigEntry, error) {
	q := s.db.WithContext(ctx).Model(&model.ConfigEntry{})
	if filter.Key != "" {
		q = q.Where("setting_key = ?", filter.Key)
	}
	if filter.Scope != nil {
		if err := filter.Scope.Validate(); err != nil {
			return nil, err
		}
		q = scoped(q, *filter.Scope)
	}

	var entries []model.ConfigEntry
	err := q.Order("setting_key").
		Order("CASE WHEN tenant_id IS NULL THEN 0 ELSE 1 END").
		Order("tenant_id").
		Find(&entries).Error
	if err != nil {
		return nil, store.Wrap(fmt.Sprintf("list config entries %q", filter.Key), err)
	}
	return entries, nil
}
