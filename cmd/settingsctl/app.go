package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/user"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/cache"
	"github.com/doodlesbykumbi/tenant-settings/pkg/config"
	"github.com/doodlesbykumbi/tenant-settings/pkg/db"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
	gormstore "github.com/doodlesbykumbi/tenant-settings/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
)

const (
	dataKeyEnv         = "SETTINGS_DATA_KEY"
	previousDataKeyEnv = "SETTINGS_PREVIOUS_DATA_KEYS"
	tokenKeyEnv        = "SETTINGS_TOKEN_KEY"
)

// app is what most commands share: configuration, a database handle and a
// resolver wired to the configured cache and audit trail.
type app struct {
	cfg      *config.SettingsConfig
	logger   *slog.Logger
	db       *gorm.DB
	resolver *settings.Resolver

	configs    *gormstore.ConfigStore
	references *gormstore.ReferenceStore
	tenants    *gormstore.TenantsStore
	health     *gormstore.HealthStore

	closers []func() error
}

type appOptions struct {
	// cache enables the configured cache backend; one-shot commands skip it
	// and invalidate nothing but their own process.
	cache   bool
	metrics *metrics.Metrics
}

func loadConfig() (*config.SettingsConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.SettingsConfig) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// loadCodec builds the secret codec from the data keys in the environment.
func loadCodec() (*secrets.Codec, error) {
	primary, ok := os.LookupEnv(dataKeyEnv)
	if !ok {
		return nil, fmt.Errorf("%s environment variable is required", dataKeyEnv)
	}
	ring, err := secrets.KeyringFromEncoded(primary, os.Getenv(previousDataKeyEnv))
	if err != nil {
		return nil, fmt.Errorf("bad %s: %w", dataKeyEnv, err)
	}
	return secrets.NewCodec(ring), nil
}

// loadTokenVerifier returns nil when SETTINGS_TOKEN_KEY is unset, leaving
// the server on forwarded identity headers.
func loadTokenVerifier(cfg *config.SettingsConfig) (*identity.TokenVerifier, error) {
	encoded := os.Getenv(tokenKeyEnv)
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("bad %s: %w", tokenKeyEnv, err)
	}
	return identity.NewTokenVerifier(identity.TokenConfig{
		Key:      key,
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
	})
}

func newCache(ctx context.Context, cfg *config.SettingsConfig) (cache.Cache, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		return cache.NewMemory(), nil, nil
	case config.CacheBackendRedis:
		r, err := cache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, nil
	}
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	audit.SetEnabled(cfg.AuditEnabled)

	codec, err := loadCodec()
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(db.Config{URL: cfg.DatabaseURL, Debug: cfg.SlogLevel() == slog.LevelDebug})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		db:         database,
		configs:    gormstore.NewConfigStore(database),
		references: gormstore.NewReferenceStore(database),
		tenants:    gormstore.NewTenantsStore(database),
		health:     gormstore.NewHealthStore(database),
	}

	resolverOpts := []settings.Option{
		settings.WithRegistry(settings.DefaultRegistry().Strict(cfg.StrictKeys)),
		settings.WithLogger(logger),
		settings.WithAuditor(audit.Default()),
		settings.WithMetrics(opts.metrics),
	}
	if opts.cache {
		c, closer, err := newCache(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to cache: %w", err)
		}
		if c != nil {
			resolverOpts = append(resolverOpts, settings.WithCache(c, cfg.CacheTTLDuration()))
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.resolver = settings.NewResolver(a.configs, codec, resolverOpts...)

	if sqlDB, err := database.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// operatorContext marks CLI work as done by the local operator, with the
// privilege global writes need.
func operatorContext(ctx context.Context) context.Context {
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return identity.Set(ctx, identity.New("settingsctl:"+name).WithPrivilege(identity.PrivilegeElevate))
}
