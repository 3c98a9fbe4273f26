// Package scope implements tenant-over-global fallback for list queries.
//
// Effective keeps, per logical entry, the active tenant's row if present and
// the global row otherwise. Paginate windows the projected result. The gorm
// store expresses the same rule in SQL with ROW_NUMBER() so large lists are
// filtered in the database; this package serves the in-memory store and is
// the reference the SQL form is tested against.
package scope
