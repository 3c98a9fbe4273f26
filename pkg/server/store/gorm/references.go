package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// Ensure ReferenceStore implements store.ReferenceStore
var _ store.ReferenceStore = (*ReferenceStore)(nil)

// ReferenceStore implements store.ReferenceStore using GORM
type ReferenceStore struct {
	db *gorm.DB
}

// NewReferenceStore creates a new ReferenceStore
func NewReferenceStore(db *gorm.DB) *ReferenceStore {
	return &ReferenceStore{db: db}
}

// effectiveQuery ranks every visible row within its name partition, tenant
// rows first, and keeps rank 1. Pagination is appended after the projection.
const effectiveQuery = `
SELECT ranked.id FROM (
	SELECT r.id, r.name, r.sort_order,
		ROW_NUMBER() OVER (
			PARTITION BY r.name
			ORDER BY CASE WHEN r.tenant_id IS NULL THEN 1 ELSE 0 END, r.sort_order, r.id
		) AS fallback_rank
	FROM reference_entries r
	WHERE r.list_code = ? AND (r.tenant_id IS NULL OR r.tenant_id = ?)
) ranked
WHERE ranked.fallback_rank = 1`

var orderClauses = map[scope.Order]string{
	scope.OrderOrdinal: "ranked.sort_order, ranked.name, ranked.id",
	scope.OrderName:    "ranked.name, ranked.id",
}

// UpsertReference inserts or replaces one reference row.
func (s *ReferenceStore) UpsertReference(ctx context.Context, entry model.ReferenceEntry) (*model.ReferenceEntry, error) {
	owner := entry.Scope()
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if entry.Payload == nil {
		entry.Payload = model.Document{}
	}
	entry.ID = ""
	entry.UpdatedAt = time.Now().UTC()

	var stored model.ReferenceEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := conflictTarget(owner, "list_code", "name")
		upsert.DoUpdates = clause.AssignmentColumns([]string{"sort_order", "payload", "updated_at"})
		if err := tx.Clauses(upsert).Create(&entry).Error; err != nil {
			return err
		}
		return scoped(tx.Where("list_code = ? AND name = ?", entry.ListCode, entry.Name), owner).First(&stored).Error
	})
	if err != nil {
		return nil, store.Wrap("upsert reference entry", err)
	}
	return &stored, nil
}

// DeleteReference removes one reference row.
func (s *ReferenceStore) DeleteReference(ctx context.Context, listCode, name string, owner model.Scope) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	tx := scoped(s.db.WithContext(ctx).Where("list_code = ? AND name = ?", listCode, name), owner).
		Delete(&model.ReferenceEntry{})
	if tx.Error != nil {
		return false, store.Wrap("delete reference entry", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// ListEffective projects the list for owner in SQL, then loads the winning
// rows in projection order.
func (s *ReferenceStore) ListEffective(ctx context.Context, listCode string, owner model.Scope, page scope.Page) ([]model.ReferenceEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	order := page.Order

	// The global scope binds no tenant; NULL matches nothing in "= ?".
	var tenantArg any
	if id, ok := owner.TenantID(); ok {
		tenantArg = id
	}

	var sb strings.Builder
	sb.WriteString(effectiveQuery)
	sb.WriteString("\nORDER BY ")
	sb.WriteString(orderClauses[order])
	args := []any{listCode, tenantArg}
	switch {
	case page.Limit > 0:
		sb.WriteString("\nLIMIT ? OFFSET ?")
		args = append(args, page.Limit, page.Offset)
	case page.Offset > 0 && s.db.Dialector.Name() == "sqlite":
		sb.WriteString("\nLIMIT -1 OFFSET ?")
		args = append(args, page.Offset)
	case page.Offset > 0:
		sb.WriteString("\nOFFSET ?")
		args = append(args, page.Offset)
	}

	db := s.db.WithContext(ctx)
	var ids []string
	if err := db.Raw(sb.String(), args...).Scan(&ids).Error; err != nil {
		return nil, store.Wrap("list effective references", err)
	}
	if len(ids) == 0 {
		return []model.ReferenceEntry{}, nil
	}

	var rows []model.ReferenceEntry
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, store.Wrap("load effective references", err)
	}

	byID := make(map[string]model.ReferenceEntry, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]model.ReferenceEntry, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			// deleted between the two reads
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FindReference is used by tests and the CLI to inspect an exact row.
func (s *ReferenceStore) FindReference(ctx context.Context, listCode, name string, owner model.Scope) (*model.ReferenceEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	var entry model.ReferenceEntry
	err := scoped(s.db.WithContext(ctx).Where("list_code = ? AND name = ?", listCode, name), owner).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap("find reference entry", err)
	}
	return &entry, nil
}
