package store

import (
	"context"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
)

// ReferenceStore persists reference list rows and answers fallback queries.
type ReferenceStore interface {
	// UpsertReference inserts or replaces the row identified by
	// (ListCode, Name, TenantID) and returns the stored row.
	UpsertReference(ctx context.Context, entry model.ReferenceEntry) (*model.ReferenceEntry, error)

	// DeleteReference removes one row, reporting whether it existed.
	DeleteReference(ctx context.Context, listCode, name string, owner model.Scope) (bool, error)

	// ListEffective returns the list as seen from owner: one row per name,
	// the tenant's row winning over the global one. The page is applied
	// after that projection.
	ListEffective(ctx context.Context, listCode string, owner model.Scope, page scope.Page) ([]model.ReferenceEntry, error)
}
