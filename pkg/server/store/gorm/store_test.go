package gorm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

type StoreSuite struct {
	suite.Suite
	db         *gorm.DB
	configs    *ConfigStore
	tenants    *TenantsStore
	references *ReferenceStore
	ctx        context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(&model.Tenant{}, &model.ConfigEntry{}, &model.ReferenceEntry{}))

	s.db = db
	s.configs = NewConfigStore(db)
	s.tenants = NewTenantsStore(db)
	s.references = NewReferenceStore(db)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func (s *StoreSuite) TestFindOneNotFound() {
	_, err := s.configs.FindOne(s.ctx, "system.email", model.GlobalScope())
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.configs.FindOne(s.ctx, "system.email", model.TenantScope("school-a"))
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreSuite) TestUpsertInsertsThenReplaces() {
	first, err := s.configs.UpsertOne(s.ctx, "system.email", model.GlobalScope(), model.Document{"host": "smtp.a"})
	s.Require().NoError(err)
	s.Nil(first.TenantID)
	s.Equal("smtp.a", first.Value["host"])

	second, err := s.configs.UpsertOne(s.ctx, "system.email", model.GlobalScope(), model.Document{"host": "smtp.b"})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID, "upsert must keep the existing row")
	s.Equal(model.Document{"host": "smtp.b"}, second.Value)

	all, err := s.configs.ListEntries(s.ctx, store.EntryFilter{Key: "system.email"})
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *StoreSuite) TestGlobalAndTenantRowsAreSeparate() {
	_, err := s.configs.UpsertOne(s.ctx, "system.sms", model.GlobalScope(), model.Document{"provider": "twilio"})
	s.Require().NoError(err)
	_, err = s.configs.UpsertOne(s.ctx, "system.sms", model.TenantScope("school-a"), model.Document{"provider": "nexmo"})
	s.Require().NoError(err)
	_, err = s.configs.UpsertOne(s.ctx, "system.sms", model.TenantScope("school-b"), model.Document{"sender": "B"})
	s.Require().NoError(err)

	global, err := s.configs.FindOne(s.ctx, "system.sms", model.GlobalScope())
	s.Require().NoError(err)
	s.Equal("twilio", global.Value["provider"])

	a, err := s.configs.FindOne(s.ctx, "system.sms", model.TenantScope("school-a"))
	s.Require().NoError(err)
	s.Require().NotNil(a.TenantID)
	s.Equal("school-a", *a.TenantID)
	s.Equal("nexmo", a.Value["provider"])

	entries, err := s.configs.ListEntries(s.ctx, store.EntryFilter{Key: "system.sms"})
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Nil(entries[0].TenantID, "global row sorts first")
	s.Equal("school-a", *entries[1].TenantID)
	s.Equal("school-b", *entries[2].TenantID)

	global2 := model.GlobalScope()
	onlyGlobal, err := s.configs.ListEntries(s.ctx, store.EntryFilter{Scope: &global2})
	s.Require().NoError(err)
	s.Len(onlyGlobal, 1)
}

func (s *StoreSuite) TestExplicitNullSurvivesRoundTrip() {
	_, err := s.configs.UpsertOne(s.ctx, "system.email", model.TenantScope("school-a"), model.Document{"password": nil})
	s.Require().NoError(err)

	got, err := s.configs.FindOne(s.ctx, "system.email", model.TenantScope("school-a"))
	s.Require().NoError(err)
	s.True(got.Value.Has("password"))
	s.Nil(got.Value["password"])
	s.False(got.Value.Has("host"))
}

func (s *StoreSuite) TestDeleteOne() {
	_, err := s.configs.UpsertOne(s.ctx, "payment.gateway", model.TenantScope("school-a"), model.Document{"mode": "live"})
	s.Require().NoError(err)

	deleted, err := s.configs.DeleteOne(s.ctx, "payment.gateway", model.GlobalScope())
	s.Require().NoError(err)
	s.False(deleted, "global delete must not touch tenant rows")

	deleted, err = s.configs.DeleteOne(s.ctx, "payment.gateway", model.TenantScope("school-a"))
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.configs.DeleteOne(s.ctx, "payment.gateway", model.TenantScope("school-a"))
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *StoreSuite) TestEmptyTenantScopeIsRejected() {
	empty := model.TenantScope("")

	_, err := s.configs.FindOne(s.ctx, "system.email", empty)
	s.ErrorIs(err, model.ErrEmptyTenantID)

	_, err = s.configs.UpsertOne(s.ctx, "system.email", empty, model.Document{"host": "x"})
	s.ErrorIs(err, model.ErrEmptyTenantID)

	_, err = s.configs.DeleteOne(s.ctx, "system.email", empty)
	s.ErrorIs(err, model.ErrEmptyTenantID)

	_, err = s.references.ListEffective(s.ctx, "fee_categories", empty, scope.Page{})
	s.ErrorIs(err, model.ErrEmptyTenantID)

	entries, err := s.configs.ListEntries(s.ctx, store.EntryFilter{})
	s.Require().NoError(err)
	s.Empty(entries, "nothing may be written as a side effect")
}

func (s *StoreSuite) TestConcurrentUpsertsLeaveOneRow() {
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.configs.UpsertOne(s.ctx, "financial.fees", model.TenantScope("school-a"), model.Document{"n": i})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	tenantScope := model.TenantScope("school-a")
	entries, err := s.configs.ListEntries(s.ctx, store.EntryFilter{Key: "financial.fees", Scope: &tenantScope})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *StoreSuite) TestTenantLifecycle() {
	s.Require().NoError(s.tenants.CreateTenant(s.ctx, &model.Tenant{ID: "school-a", Name: "School A"}))
	s.ErrorIs(s.tenants.CreateTenant(s.ctx, &model.Tenant{ID: "school-a", Name: "Again"}), store.ErrTenantExists)
	s.Require().NoError(s.tenants.CreateTenant(s.ctx, &model.Tenant{ID: "school-b", Name: "School B"}))

	t, err := s.tenants.FindTenant(s.ctx, "school-a")
	s.Require().NoError(err)
	s.Equal("School A", t.Name)

	_, err = s.tenants.FindTenant(s.ctx, "school-z")
	s.ErrorIs(err, store.ErrNotFound)

	list, err := s.tenants.ListTenants(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("school-a", list[0].ID)
}

func (s *StoreSuite) TestDeleteTenantCascades() {
	s.Require().NoError(s.tenants.CreateTenant(s.ctx, &model.Tenant{ID: "school-a", Name: "School A"}))
	_, err := s.configs.UpsertOne(s.ctx, "system.email", model.GlobalScope(), model.Document{"host": "g"})
	s.Require().NoError(err)
	_, err = s.configs.UpsertOne(s.ctx, "system.email", model.TenantScope("school-a"), model.Document{"host": "a"})
	s.Require().NoError(err)
	tenantID := "school-a"
	_, err = s.references.UpsertReference(s.ctx, model.ReferenceEntry{ListCode: "fee_categories", Name: "Tuition", TenantID: &tenantID})
	s.Require().NoError(err)

	s.Require().NoError(s.tenants.DeleteTenant(s.ctx, "school-a"))

	_, err = s.configs.FindOne(s.ctx, "system.email", model.TenantScope("school-a"))
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.configs.FindOne(s.ctx, "system.email", model.GlobalScope())
	s.NoError(err, "global rows survive")
	_, err = s.references.FindReference(s.ctx, "fee_categories", "Tuition", model.TenantScope("school-a"))
	s.ErrorIs(err, store.ErrNotFound)

	s.ErrorIs(s.tenants.DeleteTenant(s.ctx, "school-a"), store.ErrNotFound)
}

func (s *StoreSuite) seedFeeCategories() {
	a := "school-a"
	rows := []model.ReferenceEntry{
		{ListCode: "fee_categories", Name: "Tuition", SortOrder: 1, Payload: model.Document{"amount": 100}},
		{ListCode: "fee_categories", Name: "Transport", SortOrder: 2, Payload: model.Document{"amount": 20}},
		{ListCode: "fee_categories", Name: "Library", SortOrder: 3, Payload: model.Document{"amount": 5}},
		{ListCode: "fee_categories", Name: "Transport", SortOrder: 2, TenantID: &a, Payload: model.Document{"amount": 35}},
		{ListCode: "fee_categories", Name: "Lab", SortOrder: 4, TenantID: &a, Payload: model.Document{"amount": 12}},
		{ListCode: "leave_types", Name: "Sick", SortOrder: 1},
	}
	for _, r := range rows {
		_, err := s.references.UpsertReference(s.ctx, r)
		s.Require().NoError(err)
	}
}

func names(rows []model.ReferenceEntry) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func (s *StoreSuite) TestListEffectiveTenantOverridesGlobal() {
	s.seedFeeCategories()

	rows, err := s.references.ListEffective(s.ctx, "fee_categories", model.TenantScope("school-a"), scope.Page{})
	s.Require().NoError(err)
	s.Equal([]string{"Tuition", "Transport", "Library", "Lab"}, names(rows))
	s.Require().NotNil(rows[1].TenantID)
	s.Equal("school-a", *rows[1].TenantID)
	s.EqualValues(35, rows[1].Payload["amount"])
}

func (s *StoreSuite) TestListEffectiveIsolatesTenants() {
	s.seedFeeCategories()

	rows, err := s.references.ListEffective(s.ctx, "fee_categories", model.TenantScope("school-b"), scope.Page{})
	s.Require().NoError(err)
	s.Equal([]string{"Tuition", "Transport", "Library"}, names(rows))
	for _, r := range rows {
		s.Nil(r.TenantID)
	}

	global, err := s.references.ListEffective(s.ctx, "fee_categories", model.GlobalScope(), scope.Page{})
	s.Require().NoError(err)
	s.Equal(names(rows), names(global))
}

func (s *StoreSuite) TestListEffectivePaginatesAfterProjection() {
	s.seedFeeCategories()

	rows, err := s.references.ListEffective(s.ctx, "fee_categories", model.TenantScope("school-a"), scope.Page{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal([]string{"Transport", "Library"}, names(rows))

	rows, err = s.references.ListEffective(s.ctx, "fee_categories", model.TenantScope("school-a"), scope.Page{Offset: 3})
	s.Require().NoError(err)
	s.Equal([]string{"Lab"}, names(rows))

	rows, err = s.references.ListEffective(s.ctx, "fee_categories", model.TenantScope("school-a"), scope.Page{Order: scope.OrderName})
	s.Require().NoError(err)
	s.Equal([]string{"Lab", "Library", "Transport", "Tuition"}, names(rows))
}

func (s *StoreSuite) TestListEffectiveRejectsBadPage() {
	_, err := s.references.ListEffective(s.ctx, "fee_categories", model.GlobalScope(), scope.Page{Order: scope.Order(99)})
	s.Error(err)
	s.False(store.IsStorageError(err))
}

func (s *StoreSuite) TestUpsertAndDeleteReference() {
	a := "school-a"
	first, err := s.references.UpsertReference(s.ctx, model.ReferenceEntry{ListCode: "leave_types", Name: "Sick", SortOrder: 1, TenantID: &a})
	s.Require().NoError(err)

	second, err := s.references.UpsertReference(s.ctx, model.ReferenceEntry{ListCode: "leave_types", Name: "Sick", SortOrder: 9, TenantID: &a})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(9, second.SortOrder)

	deleted, err := s.references.DeleteReference(s.ctx, "leave_types", "Sick", model.GlobalScope())
	s.Require().NoError(err)
	s.False(deleted)

	deleted, err = s.references.DeleteReference(s.ctx, "leave_types", "Sick", model.TenantScope("school-a"))
	s.Require().NoError(err)
	s.True(deleted)
}

func (s *StoreSuite) TestHealth() {
	s.NoError(NewHealthStore(s.db).CheckConnectivity(s.ctx))
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	db, mock := newMockGorm(t)
	mock.ExpectQuery(`SELECT \* FROM "config_entries"`).WillReturnError(errors.New("connection reset"))

	_, err := NewConfigStore(db).FindOne(context.Background(), "system.email", model.GlobalScope())
	require.Error(t, err)
	assert.True(t, store.IsStorageError(err))
	assert.NotErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelledContextPassesThrough(t *testing.T) {
	db, mock := newMockGorm(t)
	mock.ExpectQuery(`SELECT \* FROM "config_entries"`).WillReturnError(context.Canceled)

	_, err := NewConfigStore(db).FindOne(context.Background(), "system.email", model.GlobalScope())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.IsStorageError(err))
}

func TestHealthReportsStorageError(t *testing.T) {
	db, mock := newMockGorm(t)
	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("down"))

	err := NewHealthStore(db).CheckConnectivity(context.Background())
	assert.True(t, store.IsStorageError(err))
}
