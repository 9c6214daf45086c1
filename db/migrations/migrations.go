package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

// Run применяет все миграции, встроенные в бинарник.
// log может быть nil, тогда используется логгер goose по умолчанию.
func Run(db *sql.DB, log goose.Logger) error {
	goose.SetBaseFS(embedMigrations)
	if log != nil {
		goose.SetLogger(log)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
