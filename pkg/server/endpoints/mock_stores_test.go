package endpoints

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
)

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockReferenceStore implements store.ReferenceStore for testing using testify/mock
type MockReferenceStore struct {
	mock.Mock
}

func (m *MockReferenceStore) UpsertReference(ctx context.Context, entry model.ReferenceEntry) (*model.ReferenceEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferenceEntry), args.Error(1)
}

func (m *MockReferenceStore) DeleteReference(ctx context.Context, listCode, name string, owner model.Scope) (bool, error) {
	args := m.Called(ctx, listCode, name, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferenceStore) ListEffective(ctx context.Context, listCode string, owner model.Scope, page scope.Page) ([]model.ReferenceEntry, error) {
	args := m.Called(ctx, listCode, owner, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReferenceEntry), args.Error(1)
}
