package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

func TestRateLimiterBucketsPerKey(t *testing.T) {
	l := NewRateLimiter(0.0001, 2)

	assert.True(t, l.Allow("t:school-a"))
	assert.True(t, l.Allow("t:school-a"))
	assert.False(t, l.Allow("t:school-a"))
	assert.True(t, l.Allow("t:school-b"), "other tenants keep their own bucket")
}

func TestRateLimiterMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	l := NewRateLimiter(0.0001, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := l.Middleware(m)(next)

	request := func(tenantID string) *httptest.ResponseRecorder {
		ctx := identity.Set(context.Background(), identity.New("ops"))
		if tenantID != "" {
			var err error
			ctx, err = tenant.Establish(ctx, tenantID)
			require.NoError(t, err)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/settings", nil).WithContext(ctx))
		return w
	}

	assert.Equal(t, http.StatusNoContent, request("school-a").Code)
	w := request("school-a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNoContent, request("school-b").Code)
	assert.Equal(t, http.StatusNoContent, request("").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))
}
