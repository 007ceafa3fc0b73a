package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// schemaSQL creates the tables the loader writes to. List columns hold JSON arrays.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS authors (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	personal_name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS books (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	description    TEXT,
	published_date TEXT,
	cover_ids      TEXT NOT NULL DEFAULT '[]',
	author_ids     TEXT NOT NULL DEFAULT '[]',
	author_names   TEXT NOT NULL DEFAULT '[]'
);
`

// InitDB creates the schema on the given DB connection if it is missing.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(schemaSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Open opens (or creates) the SQLite database at path and initializes the schema.
// The loader is the sole writer, so the pool is capped at one connection; this also
// keeps ":memory:" databases from splitting across connections.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
