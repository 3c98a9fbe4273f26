package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Resolver       *settings.Resolver
	ReferenceStore store.ReferenceStore
	TenantsStore   store.TenantsStore
	HealthStore    store.HealthStore

	// TenantResolver derives the tenant of each request. Defaults to the
	// X-Tenant-ID header.
	TenantResolver tenant.Resolver

	// Tokens, when set, takes the caller from a signed bearer token instead
	// of the forwarded identity headers.
	Tokens *identity.TokenVerifier

	// Limiter throttles requests per tenant; nil disables it.
	Limiter *RateLimiter

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Auditor  audit.Sink
	Logger   *slog.Logger
}

type Server struct {
	Resolver       *settings.Resolver
	ReferenceStore store.ReferenceStore
	TenantsStore   store.TenantsStore
	HealthStore    store.HealthStore
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Auditor        audit.Sink
	Logger         *slog.Logger

	// Router serves every route. Request-scoped middleware (identity,
	// tenant, rate limit) is installed on it by NewServer.
	Router *mux.Router
	srv    *http.Server
}

func NewServer(deps Deps, host string, port string) *Server {
	if deps.TenantResolver == nil {
		deps.TenantResolver = tenant.HeaderResolver(tenant.DefaultHeader)
	}
	if deps.Auditor == nil {
		deps.Auditor = audit.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter().UseEncodedPath()
	if deps.Tokens != nil {
		router.Use(deps.Tokens.Middleware)
	} else {
		router.Use(identity.Middleware)
	}
	router.Use(tenant.Middleware(deps.TenantResolver))
	if deps.Limiter != nil {
		router.Use(deps.Limiter.Middleware(deps.Metrics))
	}

	srv := &http.Server{
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		Addr:         host + ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Resolver:       deps.Resolver,
		ReferenceStore: deps.ReferenceStore,
		TenantsStore:   deps.TenantsStore,
		HealthStore:    deps.HealthStore,
		Metrics:        deps.Metrics,
		Gatherer:       deps.Gatherer,
		Auditor:        deps.Auditor,
		Logger:         deps.Logger,
		Router:         router,
		srv:            srv,
	}
}

// Handler is the full handler chain, access logging included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	s.Logger.Info("listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
