// Package migrations embeds the SQL schema migrations and registers them
// with the database package at init time.
package migrations

import (
	"embed"

	"github.com/homedcloud/homed-cloud/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
