package settings

import "errors"

var (
	// ErrInvalidScope is returned for a tenant-scoped operation with no
	// tenant bound, or a tenant scope with an empty id. Such calls are never
	// turned into global writes.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrUnknownKey is returned for keys missing from a strict registry or
	// not shaped like a settings key.
	ErrUnknownKey = errors.New("unknown settings key")

	// ErrConflict is returned by PersistScopeIfUnmodified when the row
	// changed after the caller read it.
	ErrConflict = errors.New("settings entry was modified concurrently")
)
