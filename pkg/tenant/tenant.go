package tenant

import (
	"context"
	"errors"
	"fmt"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for the active tenant.
	Key ContextKey = "tenant"
)

var (
	ErrEmptyTenant        = errors.New("tenant id must not be empty")
	ErrAlreadyEstablished = errors.New("a different tenant is already established")
)

// binding is stored rather than a bare string so Clear can shadow a parent
// context's tenant.
type binding struct {
	id string
}

// Establish binds tenant id to the returned context. Re-establishing the same
// id is a no-op; a different id fails so a request can never switch tenants
// midway.
func Establish(ctx context.Context, id string) (context.Context, error) {
	if id == "" {
		return ctx, ErrEmptyTenant
	}
	if current, ok := Current(ctx); ok {
		if current == id {
			return ctx, nil
		}
		return ctx, fmt.Errorf("%w: %q active, %q requested", ErrAlreadyEstablished, current, id)
	}
	return context.WithValue(ctx, Key, binding{id: id}), nil
}

// Current returns the active tenant, if any.
func Current(ctx context.Context) (string, bool) {
	b, ok := ctx.Value(Key).(binding)
	if !ok || b.id == "" {
		return "", false
	}
	return b.id, true
}

// Clear returns a context with no active tenant.
func Clear(ctx context.Context) context.Context {
	if _, ok := Current(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, Key, binding{})
}

// Scoped runs fn with id established, for background jobs and CLI
// invocations that act on behalf of one tenant. Any tenant already active on
// ctx is replaced for the duration of fn.
func Scoped(ctx context.Context, id string, fn func(context.Context) error) error {
	scoped, err := Establish(Clear(ctx), id)
	if err != nil {
		return err
	}
	return fn(scoped)
}
