// Package memory provides in-process implementations of the store
// interfaces. They back unit tests and the single-node "memory" database
// URL; nothing is persisted.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

var (
	_ store.ConfigStore    = (*Store)(nil)
	_ store.ReferenceStore = (*Store)(nil)
	_ store.TenantsStore   = (*Store)(nil)
	_ store.HealthStore    = (*Store)(nil)
)

type rowKey struct {
	key    string
	tenant string
	global bool
}

func keyFor(key string, owner model.Scope) rowKey {
	id, ok := owner.TenantID()
	return rowKey{key: key, tenant: id, global: !ok}
}

// Store keeps every table in maps guarded by one lock. Values are cloned on
// the way in and on the way out so callers never share a Document with the
// store.
type Store struct {
	mu         sync.RWMutex
	configs    map[rowKey]model.ConfigEntry
	references map[string]map[rowKey]model.ReferenceEntry
	tenants    map[string]model.Tenant

	fail error
}

func New() *Store {
	return &Store{
		configs:    make(map[rowKey]model.ConfigEntry),
		references: make(map[string]map[rowKey]model.ReferenceEntry),
		tenants:    make(map[string]model.Tenant),
	}
}

// SetFail makes every operation fail with err, wrapped as a storage error,
// until it is called with nil. Tests use it to simulate an unavailable
// backend.
func (s *Store) SetFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	fail := s.fail
	s.mu.RUnlock()
	if fail != nil {
		return store.Wrap(op, fail)
	}
	return nil
}

func cloneConfig(e model.ConfigEntry) *model.ConfigEntry {
	e.Value = e.Value.Clone()
	if e.TenantID != nil {
		id := *e.TenantID
		e.TenantID = &id
	}
	return &e
}

func (s *Store) FindOne(ctx context.Context, key string, owner model.Scope) (*model.ConfigEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, "find config entry"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.configs[keyFor(key, owner)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneConfig(e), nil
}

func (s *Store) UpsertOne(ctx context.Context, key string, owner model.Scope, value model.Document) (*model.ConfigEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, "upsert config entry"); err != nil {
		return nil, err
	}
	if value == nil {
		value = model.Document{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyFor(key, owner)
	e, ok := s.configs[k]
	if !ok {
		e = model.ConfigEntry{ID: uuid.NewString(), Key: key, TenantID: owner.Column()}
	}
	e.Value = value.Clone()
	e.UpdatedAt = time.Now().UTC()
	s.configs[k] = e
	return cloneConfig(e), nil
}

func (s *Store) DeleteOne(ctx context.Context, key string, owner model.Scope) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	if err := s.check(ctx, "delete config entry"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyFor(key, owner)
	if _, ok := s.configs[k]; !ok {
		return false, nil
	}
	delete(s.configs, k)
	return true, nil
}

func (s *Store) ListEntries(ctx context.Context, filter store.EntryFilter) ([]model.ConfigEntry, error) {
	if filter.Scope != nil {
		if err := filter.Scope.Validate(); err != nil {
			return nil, err
		}
	}
	if err := s.check(ctx, "list config entries"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ConfigEntry, 0)
	for k, e := range s.configs {
		if filter.Key != "" && k.key != filter.Key {
			continue
		}
		if filter.Scope != nil && keyFor(k.key, *filter.Scope) != k {
			continue
		}
		out = append(out, *cloneConfig(e))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if (a.TenantID == nil) != (b.TenantID == nil) {
			return a.TenantID == nil
		}
		return a.TenantID != nil && *a.TenantID < *b.TenantID
	})
	return out, nil
}

func cloneReference(e model.ReferenceEntry) model.ReferenceEntry {
	e.Payload = e.Payload.Clone()
	if e.TenantID != nil {
		id := *e.TenantID
		e.TenantID = &id
	}
	return e
}

func (s *Store) UpsertReference(ctx context.Context, entry model.ReferenceEntry) (*model.ReferenceEntry, error) {
	owner := entry.Scope()
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, "upsert reference entry"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.references[entry.ListCode]
	if !ok {
		list = make(map[rowKey]model.ReferenceEntry)
		s.references[entry.ListCode] = list
	}
	k := keyFor(entry.Name, owner)
	stored := cloneReference(entry)
	if prev, ok := list[k]; ok {
		stored.ID = prev.ID
	} else {
		stored.ID = uuid.NewString()
	}
	if stored.Payload == nil {
		stored.Payload = model.Document{}
	}
	stored.UpdatedAt = time.Now().UTC()
	list[k] = stored

	out := cloneReference(stored)
	return &out, nil
}

func (s *Store) DeleteReference(ctx context.Context, listCode, name string, owner model.Scope) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, err
	}
	if err := s.check(ctx, "delete reference entry"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.references[listCode]
	k := keyFor(name, owner)
	if _, ok := list[k]; !ok {
		return false, nil
	}
	delete(list, k)
	return true, nil
}

func (s *Store) ListEffective(ctx context.Context, listCode string, owner model.Scope, page scope.Page) ([]model.ReferenceEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, "list effective references"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]model.ReferenceEntry, 0, len(s.references[listCode]))
	for _, e := range s.references[listCode] {
		rows = append(rows, cloneReference(e))
	}
	s.mu.RUnlock()

	id, ok := owner.TenantID()
	return scope.Paginate(scope.Effective(rows, id, ok), page), nil
}

func (s *Store) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if err := s.check(ctx, "create tenant"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.tenants[t.ID]; ok {
		return store.ErrTenantExists
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tenants[t.ID] = *t
	return nil
}

func (s *Store) FindTenant(ctx context.Context, id string) (*model.Tenant, error) {
	if err := s.check(ctx, "find tenant"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	if err := s.check(ctx, "list tenants"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	if err := s.check(ctx, "delete tenant"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.tenants, id)
	for k := range s.configs {
		if !k.global && k.tenant == id {
			delete(s.configs, k)
		}
	}
	for _, list := range s.references {
		for k := range list {
			if !k.global && k.tenant == id {
				delete(list, k)
			}
		}
	}
	return nil
}

func (s *Store) CheckConnectivity(ctx context.Context) error {
	return s.check(ctx, "ping")
}
