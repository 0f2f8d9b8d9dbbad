package duckdb

import (
	"database/sql"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Open creates a fresh in-memory DuckDB database.
func Open() (*sql.DB, error) {
	return sql.Open("duckdb", "")
}
