package store

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
)

// ErrTenantExists is returned when creating a tenant whose id is taken.
var ErrTenantExists = errors.New("tenant already exists")

// TenantsStore manages the tenants table.
type TenantsStore interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error

	// FindTenant returns ErrNotFound if the tenant doesn't exist.
	FindTenant(ctx context.Context, id string) (*model.Tenant, error)

	ListTenants(ctx context.Context) ([]model.Tenant, error)

	// DeleteTenant removes the tenant and every row it owns.
	// Returns ErrNotFound if the tenant doesn't exist.
	DeleteTenant(ctx context.Context, id string) error
}
