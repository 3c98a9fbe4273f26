package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/tenant-settings/pkg/db"
)

// migrationsTable keeps our version row apart from the schema_migrations
// table of any application sharing the database.
const migrationsTable = "settings_schema_migrations"

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

Postgres databases run the versioned migrations in db/migrations. sqlite
databases are brought up to date from the models.

Example:
  settingsctl db migrate`,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError("Migration failed", runMigrations(db.URL()))
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  settingsctl db down      # Rollback 1 migration
  settingsctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		steps := 1
		if len(args) > 0 {
			if _, err := fmt.Sscanf(args[0], "%d", &steps); err != nil || steps < 1 {
				exitOnError("Rollback failed", fmt.Errorf("steps must be a positive integer"))
			}
		}
		exitOnError("Rollback failed", runMigrationsDown(db.URL(), steps))
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError("Failed to get status", showMigrationStatus(db.URL()))
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}

// withMigrationsTable adds the x-migrations-table parameter to dbURL.
func withMigrationsTable(dbURL string) string {
	if strings.Contains(dbURL, "?") {
		return dbURL + "&x-migrations-table=" + migrationsTable
	}
	return dbURL + "?x-migrations-table=" + migrationsTable
}

func openMigrate(dbURL string) (*migrate.Migrate, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	dialect, err := db.Dialect(dbURL)
	if err != nil {
		return nil, err
	}
	if dialect != "postgres" {
		return nil, fmt.Errorf("versioned migrations are only available for postgres")
	}
	m, err := createMigrateInstance(withMigrationsTable(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func runMigrations(dbURL string) error {
	if dialect, err := db.Dialect(dbURL); err == nil && dialect == "sqlite" {
		return autoMigrate(dbURL)
	}

	m, err := openMigrate(dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, _ := m.Version()
	fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No migrations to run - database is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	fmt.Printf("Migrated to version: %d\n", newVersion)
	fmt.Println("Migrations complete")
	return nil
}

func autoMigrate(dbURL string) error {
	database, err := db.Connect(db.Config{URL: dbURL})
	if err != nil {
		return err
	}
	if sqlDB, err := database.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Schema is up to date")
	return nil
}

func runMigrationsDown(dbURL string, steps int) error {
	m, err := openMigrate(dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	fmt.Printf("Rolling back %d migration(s)...\n", steps)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("Rolled back all migrations")
		return nil
	}
	fmt.Printf("Rolled back to version: %d\n", version)
	return nil
}

func showMigrationStatus(dbURL string) error {
	m, err := openMigrate(dbURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	files, err := listMigrationFiles()
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Printf("No migrations have been applied yet (%d available)\n", len(files))
			return nil
		}
		return err
	}

	fmt.Printf("Current version: %d\n", version)
	if pending := pendingMigrations(files, version); len(pending) > 0 {
		fmt.Printf("Pending migrations: %d\n", len(pending))
		for _, f := range pending {
			fmt.Println("  " + f)
		}
	}
	if dirty {
		fmt.Fprintln(os.Stderr, "Warning: Database is in a dirty state")
	}
	return nil
}

// pendingMigrations returns the up files newer than version, in file order.
func pendingMigrations(files []string, version uint) []string {
	var pending []string
	for _, f := range files {
		var v uint
		if _, err := fmt.Sscanf(f, "%d_", &v); err != nil {
			continue
		}
		if v > version {
			pending = append(pending, f)
		}
	}
	return pending
}
