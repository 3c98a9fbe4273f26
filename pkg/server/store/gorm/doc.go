// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Upserts are single INSERT ... ON CONFLICT statements targeting the partial
// unique indexes of config_entries and reference_entries, so concurrent
// writers for the same (key, tenant) never create duplicates. The same code
// runs on Postgres in production and SQLite in tests.
package gorm
