package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/config"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

func TestScopeFor(t *testing.T) {
	owner, err := scopeFor("")
	require.NoError(t, err)
	assert.True(t, owner.IsGlobal())

	owner, err = scopeFor("school-a")
	require.NoError(t, err)
	assert.Equal(t, model.TenantScope("school-a"), owner)

	_, err = scopeFor("not a tenant")
	assert.ErrorIs(t, err, tenant.ErrInvalidTenantID)
}

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		stdin   string
		want    model.Document
		wantErr bool
	}{
		{name: "inline", arg: `{"currency":"KES"}`, want: model.Document{"currency": "KES"}},
		{name: "explicit null kept", arg: `{"late_fine":null}`, want: model.Document{"late_fine": nil}},
		{name: "stdin", arg: "-", stdin: `{"motto":"Lux"}`, want: model.Document{"motto": "Lux"}},
		{name: "null is empty", arg: "null", want: model.Document{}},
		{name: "array rejected", arg: "[1]", wantErr: true},
		{name: "garbage rejected", arg: "currency=KES", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDocument(tt.arg, strings.NewReader(tt.stdin))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithMigrationsTable(t *testing.T) {
	assert.Equal(t,
		"postgres://u@db/settings?x-migrations-table=settings_schema_migrations",
		withMigrationsTable("postgres://u@db/settings"))
	assert.Equal(t,
		"postgres://u@db/settings?sslmode=disable&x-migrations-table=settings_schema_migrations",
		withMigrationsTable("postgres://u@db/settings?sslmode=disable"))
}

func TestOpenMigrateRejectsNonPostgres(t *testing.T) {
	_, err := openMigrate("")
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = openMigrate("sqlite://settings.db")
	assert.ErrorContains(t, err, "only available for postgres")

	_, err = openMigrate("mysql://u@db/settings")
	assert.Error(t, err)
}

func TestPendingMigrations(t *testing.T) {
	files := []string{
		"20260101000001_create_tenants.up.sql",
		"20260101000002_create_config_entries.up.sql",
		"20260101000003_create_reference_entries.up.sql",
		"README.up.sql",
	}

	assert.Equal(t, files[2:3], pendingMigrations(files, 20260101000002))
	assert.Empty(t, pendingMigrations(files, 20260101000003))
	assert.Len(t, pendingMigrations(files, 0), 3)
}

func TestDefaultsPath(t *testing.T) {
	p, err := defaultsPath([]string{"given.yml"}, "configured.yml")
	require.NoError(t, err)
	assert.Equal(t, "given.yml", p)

	p, err = defaultsPath(nil, "configured.yml")
	require.NoError(t, err)
	assert.Equal(t, "configured.yml", p)

	_, err = defaultsPath(nil, "")
	assert.Error(t, err)
}

func TestTenantResolver(t *testing.T) {
	cfg := &config.SettingsConfig{TenantHeader: "X-School", TenantBaseDomain: "schools.example"}
	resolver := tenantResolver(cfg)

	r := httptest.NewRequest("GET", "http://school-a.schools.example/settings", nil)
	id, err := resolver.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "school-a", id)

	r = httptest.NewRequest("GET", "http://api.other.example/settings", nil)
	r.Header.Set("X-School", "school-b")
	id, err = resolver.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "school-b", id)
}

func TestWaitForServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, waitForServer(srv.URL, 5, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-100)
	assert.Error(t, waitForServer(srv.URL, 2, time.Millisecond))
}
