// Package sqlite implements repository.UserRepository on an embedded SQLite
// database (modernc.org/sqlite, no CGo).
//
// The users table carries UNIQUE constraints on email and username. Those two
// indexes are the only thing standing between concurrent signups and duplicate
// accounts, so the schema is the source of truth for uniqueness, not the
// service layer.
//
// dbPath examples:
//   - "data/auth.db" → file-based database
//   - ":memory:"     → in-memory database (tests)
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: each ":memory:" connection is its own database, and
	// SQLite serializes writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// password is nullable: federated accounts have none.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			fullname    TEXT NOT NULL,
			email       TEXT NOT NULL UNIQUE,
			password    TEXT,
			username    TEXT NOT NULL UNIQUE,
			profile_img TEXT NOT NULL DEFAULT '',
			google_auth INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}
