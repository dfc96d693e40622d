// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go port of SQLite, so the binary builds
// without CGo and cross-compiles cleanly. The database registers itself
// with database/sql under the driver name "sqlite".
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool. Each repository interface is served
// by a small accessor type (Users, Todos, Activities) sharing the pool.
// New creates it, Close releases it; the server owns the lifecycle.
type DB struct {
	conn *sql.DB
}

// Users returns the account store backed by this database.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Todos returns the todo store backed by this database.
func (db *DB) Todos() *TodoDB {
	return &TodoDB{conn: db.conn}
}

// Activities returns the activity store backed by this database.
func (db *DB) Activities() *ActivityDB {
	return &ActivityDB{conn: db.conn}
}

// New opens the database at dbPath (":memory:" for tests) and runs the
// schema migration.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// Token columns and their expiry columns are nullable pairs; the
	// repository methods always write them together. UNIQUE indexes on the
	// token columns keep a token from ever matching two accounts (SQLite
	// unique indexes ignore NULLs, so cleared tokens don't collide).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                         TEXT PRIMARY KEY,
			email                      TEXT NOT NULL UNIQUE,
			display_name               TEXT NOT NULL DEFAULT '',
			password_hash              TEXT NOT NULL,
			email_verified             INTEGER NOT NULL DEFAULT 0,
			email_verification_token   TEXT,
			email_verification_expires DATETIME,
			password_reset_token       TEXT,
			password_reset_expires     DATETIME,
			created_at                 DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at                 DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_verification_token
			ON users(email_verification_token);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_reset_token
			ON users(password_reset_token);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS todos (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed   INTEGER NOT NULL DEFAULT 0,
			due_date    DATETIME,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_todos_user_id ON todos(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating todos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			date       DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating activities table: %w", err)
	}

	return nil
}
