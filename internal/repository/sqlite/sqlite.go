// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is embedded: the whole photo-album catalogue lives in one file next to
// the binary, with no database server to run. It is the default store for
// development and single-node deployments; ":memory:" gives every test a
// fresh, isolated database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed to build or cross-compile.
//
// SCHEMA:
//
//	users        (id, email UNIQUE)
//	albums       (id, owner_id → users, name, description)
//	album_shares (album_id → albums ON DELETE CASCADE, email), PRIMARY KEY(album_id, email)
//	images       (id, album_id → albums, tags JSON, comments JSON, ...)
//
// images.album_id deliberately has NO cascade: with foreign keys on, deleting
// an album that still has images fails, so the store itself refuses to create
// orphans if a caller skips the image cascade.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// *DB must satisfy the full repository.Store contract.
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/kaviospix.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
//
// Pragmas are passed through the DSN so that EVERY pooled connection gets
// them, not just the first one: foreign_keys is a per-connection setting.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", withPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate, empty database, so the
	// pool must never hold more than one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
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

// newWithConn wraps an already-open pool without migrating it. Tests use it
// to inject a sqlmock connection.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func withPragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return apperror.Unavailable("database", err)
	}
	return nil
}

// migrate creates all tables. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS albums (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL REFERENCES users(id),
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_albums_owner_id ON albums(owner_id);

		CREATE TABLE IF NOT EXISTS album_shares (
			album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			email    TEXT NOT NULL,
			added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (album_id, email)
		);
		CREATE INDEX IF NOT EXISTS idx_album_shares_email ON album_shares(email);
	`)
	if err != nil {
		return fmt.Errorf("creating albums tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			id          TEXT PRIMARY KEY,
			album_id    TEXT NOT NULL REFERENCES albums(id),
			name        TEXT NOT NULL,
			image_url   TEXT NOT NULL,
			tags        TEXT NOT NULL DEFAULT '[]',
			person      TEXT NOT NULL DEFAULT '',
			is_favorite INTEGER NOT NULL DEFAULT 0,
			comments    TEXT NOT NULL DEFAULT '[]',
			size        INTEGER NOT NULL,
			uploaded_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_images_album_id ON images(album_id);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}

	return nil
}

// constraintCode returns the extended SQLite result code of a constraint
// violation, or 0 if err is not one.
func constraintCode(err error) int {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return se.Code()
		}
	}
	return 0
}

// checkAffected turns "zero rows changed" into a NotFound for resource/id.
func checkAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperror.Unavailable("database", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
