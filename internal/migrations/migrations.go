// Package migrations embeds the database schema and applies it through database/sql.
package migrations

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	// registers the "postgres" driver
	_ "github.com/lib/pq"
)

// Version identifies the embedded schema revision.
const Version = "2026-10-01-bulk-jobs"

//go:embed schema.sql
var schema string

// Schema returns the embedded DDL.
func Schema() string {
	return schema
}

// Statements splits the schema into individual statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Open opens a database/sql handle on the lib/pq driver.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Apply runs every statement inside one transaction and records the version.
// It reports false when the version was already applied.
func Apply(ctx context.Context, db *sql.DB) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range Statements() {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	res, err := tx.ExecContext(ctx, `insert into schema_migrations (version) values ($1) on conflict (version) do nothing`, Version)
	if err != nil {
		return false, fmt.Errorf("record version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
