// Package store provides storage abstractions for the settings engine.
//
// This package defines interfaces for database operations so the resolver and
// the HTTP endpoints are decoupled from the database implementation.
//
// # Available Stores
//
//   - ConfigStore: settings documents keyed by (key, scope)
//   - TenantsStore: tenant lifecycle, with cascading delete
//   - ReferenceStore: reference lists with tenant-over-global fallback
//   - HealthStore: connectivity checks
//
// Implementations live in store/gorm (Postgres, SQLite) and store/memory.
//
// # Errors
//
//	entry, err := configStore.FindOne(ctx, "system.email", model.GlobalScope())
//	if errors.Is(err, store.ErrNotFound) {
//	    // no global default
//	}
//
// Failures of the backing store are returned as *StorageError; context
// cancellation errors are returned unchanged.
package store
