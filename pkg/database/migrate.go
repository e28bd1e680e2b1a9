package database

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

var gooseRunFunc = goose.Run // mockable

// Migrate runs a goose command (up, down, status, version, redo, up-to, down-to)
// against the embedded migration files.
func Migrate(db *sql.DB, migrations fs.FS, dir, command string, args ...string) error {
	if command == "" {
		return fmt.Errorf("migrate command required")
	}
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := gooseRunFunc(command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
