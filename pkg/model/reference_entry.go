package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferenceEntry is a row of a reference list (fee categories, leave types,
// hostel room types and the like). Rows sharing ListCode and Name are the
// same logical entry; a tenant row shadows the global one for that tenant.
type ReferenceEntry struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ListCode  string    `gorm:"column:list_code;size:191;not null;uniqueIndex:idx_reference_entries_global,priority:1,where:tenant_id IS NULL;uniqueIndex:idx_reference_entries_tenant,priority:1,where:tenant_id IS NOT NULL"`
	Name      string    `gorm:"column:name;size:191;not null;uniqueIndex:idx_reference_entries_global,priority:2,where:tenant_id IS NULL;uniqueIndex:idx_reference_entries_tenant,priority:2,where:tenant_id IS NOT NULL"`
	TenantID  *string   `gorm:"column:tenant_id;size:64;index;uniqueIndex:idx_reference_entries_tenant,priority:3"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	Payload   Document  `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (ReferenceEntry) TableName() string {
	return "reference_entries"
}

func (e *ReferenceEntry) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e ReferenceEntry) Scope() Scope {
	return ScopeFor(e.TenantID)
}

// FallbackKey, Tenant, Ordinal and Identifier let reference rows flow
// through the fallback projection in package scope.

func (e ReferenceEntry) FallbackKey() string {
	return e.Name
}

func (e ReferenceEntry) Tenant() *string {
	return e.TenantID
}

func (e ReferenceEntry) Ordinal() int {
	return e.SortOrder
}

func (e ReferenceEntry) Identifier() string {
	return e.ID
}
