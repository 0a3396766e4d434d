// Package migrations compiles the schema migration files into the binary
// so the bridge never depends on SQL files being shipped alongside it.
package migrations

import (
	"embed"

	"github.com/openav/stormbridge/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
