package store

import (
	"context"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
)

// EntryFilter selects config entries for bulk operations such as key
// rotation. Empty fields match everything.
type EntryFilter struct {
	Key   string
	Scope *model.Scope
}

// ConfigStore persists settings documents keyed by (key, scope).
type ConfigStore interface {
	// FindOne returns the exact row for key and scope.
	// Returns ErrNotFound if it doesn't exist.
	FindOne(ctx context.Context, key string, scope model.Scope) (*model.ConfigEntry, error)

	// UpsertOne atomically inserts or replaces the row's value and returns
	// the stored row.
	UpsertOne(ctx context.Context, key string, scope model.Scope, value model.Document) (*model.ConfigEntry, error)

	// DeleteOne removes the row, reporting whether one existed.
	DeleteOne(ctx context.Context, key string, scope model.Scope) (bool, error)

	// ListEntries returns matching rows ordered by key, global first.
	ListEntries(ctx context.Context, filter EntryFilter) ([]model.ConfigEntry, error)
}
