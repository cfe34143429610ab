package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// table is one CREATE statement of the schema.
type table struct {
	name string
	ddl  string
}

// tables lists the schema in dependency order.
var tables = []table{
	{"employees", `
CREATE TABLE IF NOT EXISTS employees (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL,
    position       TEXT NOT NULL DEFAULT '',
    department     TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    contact_number TEXT NOT NULL DEFAULT '',
    address        TEXT NOT NULL DEFAULT '',
    employee_id    TEXT UNIQUE,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"users", `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'employee' CHECK (role IN ('admin', 'supervisor', 'employee')),
    employee_id   INTEGER REFERENCES employees(id) ON DELETE SET NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"articles", `
CREATE TABLE IF NOT EXISTS articles (
    id                INTEGER PRIMARY KEY,
    article           TEXT NOT NULL,
    description       TEXT NOT NULL DEFAULT '',
    date_acquired     TEXT NOT NULL DEFAULT '',
    property_number   TEXT NOT NULL DEFAULT '',
    unit              TEXT NOT NULL DEFAULT '',
    unit_value        NUMERIC NOT NULL,
    balance_per_card  INTEGER NOT NULL DEFAULT 0,
    on_hand_per_count INTEGER NOT NULL DEFAULT 0,
    total_amount      NUMERIC NOT NULL DEFAULT 0,
    remarks           TEXT NOT NULL DEFAULT '',
    actual_user       TEXT NOT NULL DEFAULT '',
    employee_id       INTEGER REFERENCES employees(id) ON DELETE SET NULL,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"returns", `
CREATE TABLE IF NOT EXISTS returns (
    id                     INTEGER PRIMARY KEY,
    rrsp_no                TEXT NOT NULL,
    date                   TEXT NOT NULL DEFAULT '',
    description            TEXT NOT NULL DEFAULT '',
    quantity               INTEGER NOT NULL DEFAULT 1,
    ics_no                 TEXT NOT NULL DEFAULT '',
    date_acquired          TEXT NOT NULL DEFAULT '',
    amount                 NUMERIC NOT NULL DEFAULT 0,
    end_user               TEXT NOT NULL DEFAULT '',
    remarks                TEXT NOT NULL DEFAULT '',
    returned_by_name       TEXT NOT NULL DEFAULT '',
    returned_by_position   TEXT NOT NULL DEFAULT '',
    returned_by_date       TEXT NOT NULL DEFAULT '',
    received_by_name       TEXT NOT NULL DEFAULT '',
    received_by_position   TEXT NOT NULL DEFAULT '',
    received_by_date       TEXT NOT NULL DEFAULT '',
    created_by             INTEGER REFERENCES users(id) ON DELETE SET NULL,
    created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"activity_logs", `
CREATE TABLE IF NOT EXISTS activity_logs (
    id         INTEGER PRIMARY KEY,
    action     TEXT NOT NULL,
    user_id    INTEGER,
    details    TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{"settings", `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`},
	{"revoked_tokens", `
CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
)`},
}

// resettable are the tables dropped by a full reset, children first.
var resettable = []string{"activity_logs", "returns", "articles", "users", "employees"}

// patch is a column added after the first release.
type patch struct {
	table  string
	column string
	typ    string
}

// patches are applied after table creation. Each is skipped when the column
// already exists. Append new columns at the end.
var patches = []patch{
	{"employees", "photo", "BLOB"},
	{"employees", "photo_mime", "TEXT"},
	{"returns", "returned_by_location", "TEXT"},
	{"returns", "received_by_location", "TEXT"},
	{"returns", "second_received_by_name", "TEXT"},
	{"returns", "second_received_by_position", "TEXT"},
	{"returns", "second_received_by_date", "TEXT"},
	{"returns", "second_received_by_location", "TEXT"},
	{"activity_logs", "request_id", "TEXT"},
}

// Options controls EnsureSchema.
type Options struct {
	// Reset drops the core tables before creating them. All data is lost.
	Reset bool
	// OnReady runs once every statement succeeded.
	OnReady func()
}

// EnsureSchema creates all tables if they don't already exist, then adds any
// missing patch columns. A failing statement is logged and the remaining
// statements still run; all failures are returned together.
func EnsureSchema(ctx context.Context, db *sql.DB, opts Options) error {
	var errs []error

	if opts.Reset {
		for _, name := range resettable {
			if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+name); err != nil {
				slog.Error("failed to drop table", "table", name, "error", err)
				errs = append(errs, fmt.Errorf("dropping %s: %w", name, err))
			}
		}
		slog.Warn("database reset", "tables", len(resettable))
	}

	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			slog.Error("failed to create table", "table", t.name, "error", err)
			errs = append(errs, fmt.Errorf("creating %s: %w", t.name, err))
		}
	}

	for _, p := range patches {
		added, err := applyPatch(ctx, db, p)
		if err != nil {
			slog.Error("failed to patch column", "table", p.table, "column", p.column, "error", err)
			errs = append(errs, err)
			continue
		}
		if added {
			slog.Info("column added", "table", p.table, "column", p.column)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if opts.OnReady != nil {
		opts.OnReady()
	}
	return nil
}

// applyPatch adds the column unless the live table already has it.
func applyPatch(ctx context.Context, db *sql.DB, p patch) (bool, error) {
	cols, err := columns(ctx, db, p.table)
	if err != nil {
		return false, err
	}
	if cols[p.column] {
		return false, nil
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, p.table, p.column, p.typ))
	if err != nil {
		return false, fmt.Errorf("adding %s.%s: %w", p.table, p.column, err)
	}
	return true, nil
}

// columns returns the set of column names of a table.
func columns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, tableName))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", tableName, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", tableName, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
