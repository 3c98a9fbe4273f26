package endpoints

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
)

func TestHandleInfo(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, request{method: "GET", path: "/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "tenant-settings", decode[map[string]string](t, w)["service"])
}

func TestHandleStatus(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		health := new(MockHealthStore)
		health.On("CheckConnectivity", mock.Anything).Return(nil)
		ts := newTestServer(t, func(d *server.Deps) { d.HealthStore = health })

		w := ts.do(t, request{method: "GET", path: "/status"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode[StatusResponse](t, w).Status)
		health.AssertExpectations(t)
	})

	t.Run("database down", func(t *testing.T) {
		health := new(MockHealthStore)
		health.On("CheckConnectivity", mock.Anything).Return(errors.New("connection refused"))
		ts := newTestServer(t, func(d *server.Deps) { d.HealthStore = health })

		w := ts.do(t, request{method: "GET", path: "/status"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "error", decode[StatusResponse](t, w).Status)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, request{method: "GET", path: "/settings/financial.fees", tenant: "school-a"})

	w := ts.do(t, request{method: "GET", path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tenant_settings_resolver_resolves_total{key="financial.fees",result="ok"} 1`)
}

func TestRateLimitedServer(t *testing.T) {
	ts := newTestServer(t, func(d *server.Deps) { d.Limiter = server.NewRateLimiter(0.0001, 1) })

	assert.Equal(t, http.StatusOK, ts.do(t, request{method: "GET", path: "/settings", tenant: "school-a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, request{method: "GET", path: "/settings", tenant: "school-a"}).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, request{method: "GET", path: "/settings", tenant: "school-b"}).Code)
}
