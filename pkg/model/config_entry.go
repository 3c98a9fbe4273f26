package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConfigEntry is one persisted settings row. A nil TenantID marks the global
// default for Key; otherwise the row is that tenant's override.
//
// At most one row exists per (Key, TenantID). Two partial unique indexes
// enforce this because NULL tenant ids never collide in a plain unique index.
type ConfigEntry struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Key       string    `gorm:"column:setting_key;size:191;not null;uniqueIndex:idx_config_entries_global_key,where:tenant_id IS NULL;uniqueIndex:idx_config_entries_tenant_key,priority:1,where:tenant_id IS NOT NULL"`
	TenantID  *string   `gorm:"column:tenant_id;size:64;index;uniqueIndex:idx_config_entries_tenant_key,priority:2"`
	Value     Document  `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (ConfigEntry) TableName() string {
	return "config_entries"
}

func (e *ConfigEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Scope returns the owner of the row.
func (e ConfigEntry) Scope() Scope {
	return ScopeFor(e.TenantID)
}
