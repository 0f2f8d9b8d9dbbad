package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Open creates a fresh in-memory SQLite database. Contents live exactly
// as long as the single pinned connection.
func Open() (*sql.DB, error) {
	return sql.Open("sqlite3", ":memory:")
}
