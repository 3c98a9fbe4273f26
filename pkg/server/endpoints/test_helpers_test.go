package endpoints

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/cache"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store/memory"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// testServer wires the full HTTP surface over the in-memory store.
type testServer struct {
	store   *memory.Store
	cache   *cache.Memory
	srv     *server.Server
	metrics *metrics.Metrics

	mu     sync.Mutex
	events []audit.Event
}

// testDeps lets a test swap individual collaborators.
type testDeps func(d *server.Deps)

func newTestServer(t *testing.T, opts ...testDeps) *testServer {
	t.Helper()
	key, err := secrets.RandomBytes(secrets.KeySize)
	require.NoError(t, err)
	cipher, err := secrets.NewSymmetric(key)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ts := &testServer{
		store:   memory.New(),
		cache:   cache.NewMemory(),
		metrics: metrics.New(reg),
	}
	sink := audit.SinkFunc(func(e audit.Event) {
		ts.mu.Lock()
		ts.events = append(ts.events, e)
		ts.mu.Unlock()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := settings.NewResolver(ts.store, secrets.NewCodec(cipher),
		settings.WithCache(ts.cache, time.Minute),
		settings.WithMetrics(ts.metrics),
		settings.WithAuditor(sink),
		settings.WithLogger(logger),
	)

	deps := server.Deps{
		Resolver:       resolver,
		ReferenceStore: ts.store,
		TenantsStore:   ts.store,
		HealthStore:    ts.store,
		Metrics:        ts.metrics,
		Gatherer:       reg,
		Auditor:        sink,
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	ts.srv = server.NewServer(deps, "127.0.0.1", "0")
	RegisterAll(ts.srv)
	return ts
}

// request describes one call against the test server.
type request struct {
	method   string
	path     string
	body     any
	tenant   string
	elevated bool
	header   map[string]string
}

func (ts *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	r.Header.Set(identity.ActorHeader, "ops@example.org")
	if req.tenant != "" {
		r.Header.Set(tenant.DefaultHeader, req.tenant)
	}
	if req.elevated {
		r.Header.Set(identity.PrivilegeHeader, "elevate")
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	ts.srv.Router.ServeHTTP(w, r)
	return w
}

func (ts *testServer) auditEvents() []audit.Event {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]audit.Event(nil), ts.events...)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]string](t, w)
	return body["error"]
}
