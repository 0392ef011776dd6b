// Package db is the SQLite-backed dictionary store: the dictionary
// registry with its dense priority ranking, and the term/kanji/tag/meta
// collections scoped to each dictionary.
package db

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB applies the embedded schema to the given connection.
func InitDB(conn *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := conn.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Open opens (creating if needed) a store database at path and applies
// migrations.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
