package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/config"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/endpoints"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

const shutdownTimeout = 20 * time.Second

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func defaultPortInt() int {
	if p, err := strconv.Atoi(defaultPort()); err == nil {
		return p
	}
	return 8080
}

// tenantResolver reads the tenant from the configured header and, when a
// base domain is set, from the request subdomain.
func tenantResolver(cfg *config.SettingsConfig) tenant.Resolver {
	resolvers := []tenant.Resolver{tenant.HeaderResolver(cfg.TenantHeader)}
	if cfg.TenantBaseDomain != "" {
		resolvers = append(resolvers, tenant.SubdomainResolver(cfg.TenantBaseDomain))
	}
	return tenant.Chain(resolvers...)
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the settings server",
	Long: `Run the settings server.

The server requires SETTINGS_DATA_KEY and DATABASE_URL. Database migrations
are run on startup; use --no-migrate to skip them.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			cfg, err := loadConfig()
			exitOnError("Invalid configuration", err)
			exitOnError("Migration failed", runMigrations(cfg.DatabaseURL))
		}

		m := metrics.New(prometheus.DefaultRegisterer)
		a, err := openApp(ctx, appOptions{cache: true, metrics: m})
		exitOnError("Unable to start", err)
		defer a.Close()

		tokens, err := loadTokenVerifier(a.cfg)
		if err != nil {
			a.Close()
			exitOnError("Unable to start", err)
		}

		var limiter *server.RateLimiter
		if a.cfg.RateLimit > 0 {
			limiter = server.NewRateLimiter(a.cfg.RateLimit, a.cfg.RateBurst)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(server.Deps{
			Resolver:       a.resolver,
			ReferenceStore: a.references,
			TenantsStore:   a.tenants,
			HealthStore:    a.health,
			TenantResolver: tenantResolver(a.cfg),
			Tokens:         tokens,
			Limiter:        limiter,
			Metrics:        m,
			Gatherer:       prometheus.DefaultGatherer,
			Auditor:        audit.Default(),
			Logger:         a.logger,
		}, host, port)
		endpoints.RegisterAll(s)

		errCh := make(chan error, 1)
		go func() { errCh <- s.Start() }()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Close()
				exitOnError("Server failed", err)
			}
		case sig := <-sigChan:
			a.logger.Info("shutting down", "signal", sig.String())
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Shutdown failed: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
