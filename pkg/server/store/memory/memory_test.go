package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

func TestConfigEntries(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("missing row is ErrNotFound", func(t *testing.T) {
		_, err := s.FindOne(ctx, "system.email", model.GlobalScope())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("upsert keeps the row id", func(t *testing.T) {
		first, err := s.UpsertOne(ctx, "system.email", model.GlobalScope(), model.Document{"host": "a"})
		require.NoError(t, err)
		second, err := s.UpsertOne(ctx, "system.email", model.GlobalScope(), model.Document{"host": "b"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "b", second.Value["host"])
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		got, err := s.FindOne(ctx, "system.email", model.GlobalScope())
		require.NoError(t, err)
		got.Value["host"] = "mutated"

		again, err := s.FindOne(ctx, "system.email", model.GlobalScope())
		require.NoError(t, err)
		assert.Equal(t, "b", again.Value["host"])
	})

	t.Run("tenant rows are separate from global", func(t *testing.T) {
		_, err := s.UpsertOne(ctx, "system.email", model.TenantScope("school-a"), model.Document{"host": "t"})
		require.NoError(t, err)

		entries, err := s.ListEntries(ctx, store.EntryFilter{Key: "system.email"})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Nil(t, entries[0].TenantID)
		assert.Equal(t, "school-a", *entries[1].TenantID)

		deleted, err := s.DeleteOne(ctx, "system.email", model.TenantScope("school-a"))
		require.NoError(t, err)
		assert.True(t, deleted)
		_, err = s.FindOne(ctx, "system.email", model.GlobalScope())
		assert.NoError(t, err)
	})

	t.Run("empty tenant id is rejected", func(t *testing.T) {
		_, err := s.UpsertOne(ctx, "system.email", model.TenantScope(""), model.Document{})
		assert.ErrorIs(t, err, model.ErrEmptyTenantID)
	})
}

func TestFailureInjection(t *testing.T) {
	s := New()
	s.SetFail(errors.New("backend down"))

	_, err := s.FindOne(context.Background(), "system.email", model.GlobalScope())
	assert.True(t, store.IsStorageError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FindOne(ctx, "system.email", model.GlobalScope())
	assert.ErrorIs(t, err, context.Canceled)

	s.SetFail(nil)
	_, err = s.FindOne(context.Background(), "system.email", model.GlobalScope())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetFailWhileServing(t *testing.T) {
	s := New()
	ctx := context.Background()
	down := errors.New("backend down")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, err := s.UpsertOne(ctx, "school.profile", model.TenantScope("school-a"), model.Document{"n": j})
				if err != nil {
					assert.True(t, store.IsStorageError(err))
				}
			}
		}()
	}
	for j := 0; j < 200; j++ {
		if j%2 == 0 {
			s.SetFail(down)
		} else {
			s.SetFail(nil)
		}
	}
	wg.Wait()

	s.SetFail(nil)
	_, err := s.FindOne(ctx, "school.profile", model.TenantScope("school-a"))
	assert.NoError(t, err)
}

func TestListEffective(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := "school-a"
	for _, r := range []model.ReferenceEntry{
		{ListCode: "hostel_room_types", Name: "Single", SortOrder: 1},
		{ListCode: "hostel_room_types", Name: "Double", SortOrder: 2},
		{ListCode: "hostel_room_types", Name: "Double", SortOrder: 2, TenantID: &a, Payload: model.Document{"beds": 3}},
		{ListCode: "hostel_room_types", Name: "Dorm", SortOrder: 3, TenantID: &a},
	} {
		_, err := s.UpsertReference(ctx, r)
		require.NoError(t, err)
	}

	rows, err := s.ListEffective(ctx, "hostel_room_types", model.TenantScope("school-a"), scope.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Double", rows[0].Name)
	assert.NotNil(t, rows[0].TenantID)
	assert.Equal(t, "Dorm", rows[1].Name)

	rows, err = s.ListEffective(ctx, "hostel_room_types", model.TenantScope("school-b"), scope.Page{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Nil(t, r.TenantID)
	}
}

func TestTenants(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateTenant(ctx, &model.Tenant{ID: "school-a", Name: "A"}))
	assert.ErrorIs(t, s.CreateTenant(ctx, &model.Tenant{ID: "school-a"}), store.ErrTenantExists)

	_, err := s.UpsertOne(ctx, "system.sms", model.TenantScope("school-a"), model.Document{"x": 1})
	require.NoError(t, err)
	_, err = s.UpsertOne(ctx, "system.sms", model.GlobalScope(), model.Document{"x": 0})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTenant(ctx, "school-a"))
	_, err = s.FindOne(ctx, "system.sms", model.TenantScope("school-a"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindOne(ctx, "system.sms", model.GlobalScope())
	assert.NoError(t, err)

	assert.ErrorIs(t, s.DeleteTenant(ctx, "school-a"), store.ErrNotFound)
}
