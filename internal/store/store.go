package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ambuj00/conversational-db/internal/dataset"
)

// TableName is the single relational table every session exposes.
const TableName = "data"

type OpenFunc func() (*sql.DB, error)

type Options struct {
	ReadOnly bool
	RowLimit int
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Store owns one in-memory database for one session. The pool is pinned
// to a single connection; in-memory engines drop their contents when
// their connection goes away.
type Store struct {
	db       *sql.DB
	readOnly bool
	rowLimit int
}

func Open(ctx context.Context, open OpenFunc, opts Options) (*Store, error) {
	if open == nil {
		return nil, fmt.Errorf("open function is required")
	}
	db, err := open()
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store database: %w", err)
	}
	return &Store{db: db, readOnly: opts.ReadOnly, rowLimit: opts.RowLimit}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load materializes the dataset into TableName, replacing any previous
// contents entirely.
func (s *Store) Load(ctx context.Context, ds *dataset.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(TableName))); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(ds)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if ds.RowCount() > 0 {
		insert, err := tx.PrepareContext(ctx, insertSQL(ds))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = insert.Close() }()

		columns := ds.Columns()
		for i := 0; i < ds.RowCount(); i++ {
			args := make([]any, len(columns))
			for c, col := range columns {
				value, err := convertCell(col.Values[i], col.Type)
				if err != nil {
					return fmt.Errorf("column %q row %d: %w", col.Name, i+1, err)
				}
				args[c] = value
			}
			if _, err := insert.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d: %w", i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load transaction: %w", err)
	}
	return nil
}

// Query executes sqlText against the session table under the store's
// configured row limit. Failures come back as a *QueryError carrying
// the classified kind; callers surface only the fixed user message.
func (s *Store) Query(ctx context.Context, sqlText string) (Result, error) {
	return s.QueryWithLimit(ctx, sqlText, s.rowLimit)
}

// QueryWithLimit executes sqlText capped to rowLimit rows when
// rowLimit > 0.
func (s *Store) QueryWithLimit(ctx context.Context, sqlText string, rowLimit int) (Result, error) {
	trimmed := stripTrailingSemicolons(sqlText)
	if trimmed == "" {
		return Result{}, &QueryError{Kind: KindExecution, Err: fmt.Errorf("sql is required")}
	}
	if s.readOnly && !isReadOnlySQL(trimmed) {
		return Result{}, &QueryError{Kind: KindNotAllowed}
	}
	if rowLimit > 0 {
		trimmed = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", trimmed, rowLimit)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return Result{}, classify(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, classify(err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, classify(err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, classify(err)
	}

	return Result{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// VerifyDriver opens and pings a throwaway database, confirming the
// configured engine is usable. Used by the readiness probe.
func VerifyDriver(ctx context.Context, open OpenFunc) error {
	st, err := Open(ctx, open, Options{})
	if err != nil {
		return err
	}
	return st.Close()
}

func createTableSQL(ds *dataset.Dataset) string {
	defs := make([]string, 0, ds.ColumnCount())
	for _, col := range ds.Columns() {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(col.Name), col.Type.SQLType()))
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(TableName), strings.Join(defs, ", "))
}

func insertSQL(ds *dataset.Dataset) string {
	names := make([]string, 0, ds.ColumnCount())
	placeholders := make([]string, 0, ds.ColumnCount())
	for _, col := range ds.Columns() {
		names = append(names, quoteIdent(col.Name))
		placeholders = append(placeholders, "?")
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(TableName), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

func convertCell(value string, t dataset.ColumnType) (any, error) {
	switch t {
	case dataset.TypeInteger:
		if value == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", value)
		}
		return parsed, nil
	case dataset.TypeFloat:
		if value == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", value)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func isReadOnlySQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
