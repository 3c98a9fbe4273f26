package model

import (
	"errors"
)

// ErrEmptyTenantID is returned by Scope.Validate for a tenant scope that
// carries no tenant id.
var ErrEmptyTenantID = errors.New("tenant scope requires a non-empty tenant id")

// Scope names the owner of a settings row: the global default or exactly one
// tenant. The zero value is the global scope.
type Scope struct {
	tenantID string
	tenant   bool
}

// GlobalScope returns the scope of global default rows.
func GlobalScope() Scope {
	return Scope{}
}

// TenantScope returns the scope of rows owned by tenantID. An empty id yields
// an invalid scope rather than the global one; see Validate.
func TenantScope(tenantID string) Scope {
	return Scope{tenantID: tenantID, tenant: true}
}

// ScopeFor maps a nullable tenant column to a scope.
func ScopeFor(tenantID *string) Scope {
	if tenantID == nil {
		return GlobalScope()
	}
	return TenantScope(*tenantID)
}

func (s Scope) IsGlobal() bool {
	return !s.tenant
}

// TenantID returns the owning tenant, or false for the global scope.
func (s Scope) TenantID() (string, bool) {
	return s.tenantID, s.tenant
}

// Column returns the value stored in the nullable tenant_id column.
func (s Scope) Column() *string {
	if !s.tenant {
		return nil
	}
	id := s.tenantID
	return &id
}

func (s Scope) Validate() error {
	if s.tenant && s.tenantID == "" {
		return ErrEmptyTenantID
	}
	return nil
}

func (s Scope) String() string {
	if !s.tenant {
		return "global"
	}
	return "tenant:" + s.tenantID
}
