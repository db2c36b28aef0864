package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/AiCodeFutures/usermanage/pkg/database"
)

// column is an additive column definition, typed per dialect.
type column struct {
	name     string
	sqlite   string
	postgres string
}

var (
	colPassword = column{"password", "TEXT NOT NULL DEFAULT ''", "TEXT NOT NULL DEFAULT ''"}
	colIsAdmin  = column{"is_admin", "INTEGER NOT NULL DEFAULT 0", "BOOLEAN NOT NULL DEFAULT FALSE"}
	colHeight   = column{"height", "REAL", "DOUBLE PRECISION"}
	colWeight   = column{"weight", "REAL", "DOUBLE PRECISION"}
	colAge      = column{"age", "INTEGER", "INTEGER"}
)

// Tables created by earlier revisions of the application carry the first
// column set only; every later step adds what is missing and nothing else.
const (
	createUsersSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  email TEXT UNIQUE NOT NULL,
  remark TEXT,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`
	createUsersPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT UNIQUE NOT NULL,
  email TEXT UNIQUE NOT NULL,
  remark TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

// Migrate brings the users table up to the current column set and returns the
// resulting schema version. Safe to call on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	dialect := goose.DialectSQLite3
	if driver == database.DriverPostgres {
		dialect = goose.DialectPostgres
	}
	p, err := goose.NewProvider(dialect, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations(driver)...),
	)
	if err != nil {
		return 0, fmt.Errorf("migration provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

func migrations(driver string) []*goose.Migration {
	createSQL := createUsersSQLite
	if driver == database.DriverPostgres {
		createSQL = createUsersPostgres
	}
	return []*goose.Migration{
		goose.NewGoMigration(1,
			txFunc(func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, createSQL)
				return err
			}),
			txFunc(func(ctx context.Context, tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS users`)
				return err
			}),
		),
		goose.NewGoMigration(2, addColumns(driver, colPassword), nil),
		goose.NewGoMigration(3, addColumns(driver, colIsAdmin), nil),
		goose.NewGoMigration(4, addColumns(driver, colHeight, colWeight, colAge), nil),
	}
}

func txFunc(fn func(ctx context.Context, tx *sql.Tx) error) *goose.GoFunc {
	return &goose.GoFunc{RunTx: fn, Mode: goose.TransactionEnabled}
}

func addColumns(driver string, cols ...column) *goose.GoFunc {
	return txFunc(func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range cols {
			ok, err := columnExists(ctx, tx, driver, "users", c.name)
			if err != nil {
				return fmt.Errorf("inspect column %s: %w", c.name, err)
			}
			if ok {
				continue
			}
			typ := c.sqlite
			if driver == database.DriverPostgres {
				typ = c.postgres
			}
			if _, err := tx.ExecContext(ctx, "ALTER TABLE users ADD COLUMN "+c.name+" "+typ); err != nil {
				return fmt.Errorf("add column %s: %w", c.name, err)
			}
		}
		return nil
	})
}

func columnExists(ctx context.Context, tx *sql.Tx, driver, table, name string) (bool, error) {
	q := `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`
	if driver == database.DriverPostgres {
		q = `SELECT COUNT(*) FROM information_schema.columns
		  WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`
	}
	var n int
	if err := tx.QueryRowContext(ctx, q, table, name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
