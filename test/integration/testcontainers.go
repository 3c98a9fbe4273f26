package integration

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-settings/pkg/cache"
	"github.com/doodlesbykumbi/tenant-settings/pkg/db"
	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/endpoints"
	gormstore "github.com/doodlesbykumbi/tenant-settings/pkg/server/store/gorm"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string
	DataKey     []byte
	HTTPClient  *http.Client

	serverProcess *exec.Cmd
	listener      net.Listener
	cancel        context.CancelFunc
}

// NewTestContext starts PostgreSQL in a container, migrates it and starts a
// settings server against it.
// Modes:
//   - Binary mode (default): Set SETTINGS_BINARY to the path of the settingsctl binary
//   - Inline mode: Set SETTINGS_INLINE=1 to run the server in-process
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("SETTINGS_INLINE") == "1"
	binaryPath := os.Getenv("SETTINGS_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("either SETTINGS_BINARY or SETTINGS_INLINE=1 is required.\n\nBinary mode:\n  go build -o settingsctl ./cmd/settingsctl\n  INTEGRATION_TEST=1 SETTINGS_BINARY=$(pwd)/settingsctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 SETTINGS_INLINE=1 go test -v ./test/integration/...")
	}
	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("SETTINGS_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("settings_test"),
		tcpostgres.WithUsername("settings"),
		tcpostgres.WithPassword("settings"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := runMigrations(connStr, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}
	rawDB, err := database.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	dataKey := make([]byte, secrets.KeySize)
	for i := range dataKey {
		dataKey[i] = byte(i)
	}

	tc := &TestContext{
		DB:          database,
		RawDB:       rawDB,
		Container:   pgContainer,
		DatabaseURL: connStr,
		DataKey:     dataKey,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}

	if inlineMode {
		err = tc.startInlineServer(database)
	} else {
		err = tc.startBinary(binaryPath)
	}
	if err != nil {
		tc.Close(ctx)
		return nil, err
	}

	if err := waitForServer(tc.ServerURL, 30*time.Second); err != nil {
		tc.Close(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}
	return tc, nil
}

// startInlineServer serves the API in-process on an ephemeral port.
func (tc *TestContext) startInlineServer(database *gorm.DB) error {
	cipher, err := secrets.NewSymmetric(tc.DataKey)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	resolver := settings.NewResolver(
		gormstore.NewConfigStore(database),
		secrets.NewCodec(secrets.NewKeyring(cipher)),
		settings.WithCache(cache.NewMemory(), time.Minute),
	)
	s := server.NewServer(server.Deps{
		Resolver:       resolver,
		ReferenceStore: gormstore.NewReferenceStore(database),
		TenantsStore:   gormstore.NewTenantsStore(database),
		HealthStore:    gormstore.NewHealthStore(database),
	}, "127.0.0.1", "0")
	endpoints.RegisterAll(s)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	tc.listener = listener
	tc.ServerURL = "http://" + listener.Addr().String()

	go func() {
		_ = http.Serve(listener, s.Handler())
	}()
	return nil
}

// startBinary starts the settingsctl server binary
func (tc *TestContext) startBinary(binaryPath string) error {
	ctx, cancel := context.WithCancel(context.Background())

	port := "18080"
	// migrations already ran in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+tc.DatabaseURL,
		"SETTINGS_DATA_KEY="+base64.StdEncoding.EncodeToString(tc.DataKey),
		"SETTINGS_CACHE_BACKEND=memory",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start binary: %w", err)
	}
	tc.serverProcess = cmd
	tc.cancel = cancel
	tc.ServerURL = "http://127.0.0.1:" + port
	return nil
}

// waitForServer polls the status endpoint until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Reset empties every settings table between scenarios.
func (tc *TestContext) Reset() error {
	return tc.DB.Exec("TRUNCATE config_entries, reference_entries, tenants CASCADE").Error
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.cancel != nil {
		tc.cancel()
	}
	if tc.serverProcess != nil && tc.serverProcess.Process != nil {
		_ = tc.serverProcess.Process.Kill()
		_ = tc.serverProcess.Wait()
	}
	if tc.listener != nil {
		_ = tc.listener.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	for _, p := range []string{"../..", "..", "."} {
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return filepath.Abs(p)
		}
	}
	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies the versioned migrations the way `settingsctl db
// migrate` does.
func runMigrations(dbURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, dbURL+"&x-migrations-table=settings_schema_migrations")
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
