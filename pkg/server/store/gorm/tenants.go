package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// Ensure TenantsStore implements store.TenantsStore
var _ store.TenantsStore = (*TenantsStore)(nil)

// TenantsStore implements store.TenantsStore using GORM
type TenantsStore struct {
	db *gorm.DB
}

// NewTenantsStore creates a new TenantsStore
func NewTenantsStore(db *gorm.DB) *TenantsStore {
	return &TenantsStore{db: db}
}

// CreateTenant inserts a tenant, failing with store.ErrTenantExists if the
// id is taken.
func (s *TenantsStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.ID != "" {
			var count int64
			if err := tx.Model(&model.Tenant{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return store.ErrTenantExists
			}
		}
		return tx.Create(t).Error
	})
	if errors.Is(err, store.ErrTenantExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrTenantExists
	}
	return store.Wrap("create tenant", err)
}

// FindTenant returns the tenant with id.
func (s *TenantsStore) FindTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.Wrap("find tenant", err)
	}
	return &t, nil
}

// ListTenants returns all tenants ordered by id.
func (s *TenantsStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := s.db.WithContext(ctx).Order("id").Find(&tenants).Error; err != nil {
		return nil, store.Wrap("list tenants", err)
	}
	return tenants, nil
}

// DeleteTenant deletes a tenant and all its associated rows
func (s *TenantsStore) DeleteTenant(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM config_entries WHERE tenant_id = ?`, id).Error; err != nil {
			return err
		}

		if err := tx.Exec(`DELETE FROM reference_entries WHERE tenant_id = ?`, id).Error; err != nil {
			return err
		}

		res := tx.Exec(`DELETE FROM tenants WHERE id = ?`, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	return store.Wrap("delete tenant", err)
}
