// Package db holds the versioned SQL migrations for postgres deployments.
package db

import "embed"

// Migrations is the migrations directory, embedded for builds tagged
// embed_migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
