package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Ambuj00/conversational-db/internal/dataset"
)

func TestLoadMaterializesDataset(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	ds := twoColumnDataset(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "data"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "data" ("id" BIGINT, "name" TEXT)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "data" ("id", "name") VALUES (?, ?)`))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "data"`)).WithArgs(int64(1), "a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "data"`)).WithArgs(int64(2), "b").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	s := &Store{db: db}
	if err := s.Load(context.Background(), ds); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestLoadInsertsNullForBlankNumericCells(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	ds, err := dataset.New([]dataset.Column{
		{Name: "views", Type: dataset.TypeFloat, Values: []string{"1.5", ""}},
	})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "data"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "data" ("views" DOUBLE)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "data" ("views") VALUES (?)`))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "data"`)).WithArgs(1.5).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "data"`)).WithArgs(nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	s := &Store{db: db}
	if err := s.Load(context.Background(), ds); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestLoadSkipsInsertForEmptyDataset(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	ds, err := dataset.New([]dataset.Column{{Name: "id", Type: dataset.TypeInteger}})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "data"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "data" ("id" BIGINT)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	s := &Store{db: db}
	if err := s.Load(context.Background(), ds); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestQueryReturnsRows(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM data`)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), []byte("a")).AddRow(int64(2), []byte("b")),
	)

	s := &Store{db: db}
	result, err := s.Query(context.Background(), "SELECT * FROM data;")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "id" {
		t.Fatalf("columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0][1] != "a" {
		t.Fatalf("byte cell not normalized: %#v", result.Rows[0][1])
	}
	assertSQLMock(t, mock)
}

func TestQueryAppliesRowLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM (SELECT * FROM data) AS q LIMIT 5`)).WillReturnRows(
		sqlmock.NewRows([]string{"id"}),
	)

	s := &Store{db: db, rowLimit: 5}
	if _, err := s.Query(context.Background(), "SELECT * FROM data"); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestQueryReadOnlyGuardRejectsWrites(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	s := &Store{db: db, readOnly: true}
	_, err := s.Query(context.Background(), "DROP TABLE data")
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("Query() error = %v, want *QueryError", err)
	}
	if qerr.Kind != KindNotAllowed {
		t.Fatalf("Kind = %v", qerr.Kind)
	}
	if qerr.UserMessage() != "Only read-only SELECT queries are allowed." {
		t.Fatalf("UserMessage() = %q", qerr.UserMessage())
	}
	assertSQLMock(t, mock)
}

func TestQueryReadOnlyGuardAllowsSelectAndWith(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1`)).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(regexp.QuoteMeta(`WITH t AS (SELECT 1) SELECT * FROM t`)).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	s := &Store{db: db, readOnly: true}
	if _, err := s.Query(context.Background(), "select 1"); err != nil {
		t.Fatalf("Query(select) error = %v", err)
	}
	if _, err := s.Query(context.Background(), "WITH t AS (SELECT 1) SELECT * FROM t"); err != nil {
		t.Fatalf("Query(with) error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestQueryClassifiesDriverErrors(t *testing.T) {
	tests := []struct {
		name    string
		driver  error
		want    ErrorKind
		message string
	}{
		{
			name:    "sqlite missing table",
			driver:  errors.New("no such table: orders"),
			want:    KindTableNotFound,
			message: "The query could not find the specified table.",
		},
		{
			name:    "duckdb missing table",
			driver:  errors.New("Catalog Error: Table with name orders does not exist!"),
			want:    KindTableNotFound,
			message: "The query could not find the specified table.",
		},
		{
			name:    "sqlite syntax",
			driver:  errors.New(`near "SELEC": syntax error`),
			want:    KindSyntax,
			message: "The query has a syntax error.",
		},
		{
			name:    "duckdb parser",
			driver:  errors.New(`Parser Error: syntax error at or near "SELEC"`),
			want:    KindSyntax,
			message: "The query has a syntax error.",
		},
		{
			name:    "anything else",
			driver:  errors.New("Binder Error: column nope does not exist"),
			want:    KindExecution,
			message: "An error occurred while executing the query.",
		},
	}

	for _, tt := range tests {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(".*").WillReturnError(tt.driver)

		s := &Store{db: db}
		_, err := s.Query(context.Background(), "SELECT * FROM orders")
		var qerr *QueryError
		if !errors.As(err, &qerr) {
			t.Fatalf("%s: error = %v, want *QueryError", tt.name, err)
		}
		if qerr.Kind != tt.want {
			t.Fatalf("%s: Kind = %v, want %v", tt.name, qerr.Kind, tt.want)
		}
		if qerr.UserMessage() != tt.message {
			t.Fatalf("%s: UserMessage() = %q, want %q", tt.name, qerr.UserMessage(), tt.message)
		}
		if !errors.Is(err, tt.driver) {
			t.Fatalf("%s: driver error not preserved on chain", tt.name)
		}
		assertSQLMock(t, mock)
		_ = db.Close()
	}
}

func TestQueryRejectsEmptySQL(t *testing.T) {
	db, mock := newSQLMock(t)
	defer func() { _ = db.Close() }()

	s := &Store{db: db}
	if _, err := s.Query(context.Background(), " ;; "); err == nil {
		t.Fatal("expected error for empty sql")
	}
	assertSQLMock(t, mock)
}

func TestErrorKindLabels(t *testing.T) {
	if KindTableNotFound.String() != "table_not_found" {
		t.Fatalf("String() = %q", KindTableNotFound.String())
	}
	if KindSyntax.String() != "syntax_error" {
		t.Fatalf("String() = %q", KindSyntax.String())
	}
	if KindNotAllowed.String() != "not_allowed" {
		t.Fatalf("String() = %q", KindNotAllowed.String())
	}
	if KindExecution.String() != "execution_error" {
		t.Fatalf("String() = %q", KindExecution.String())
	}
}

func twoColumnDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]dataset.Column{
		{Name: "id", Type: dataset.TypeInteger, Values: []string{"1", "2"}},
		{Name: "name", Type: dataset.TypeText, Values: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("dataset.New() error = %v", err)
	}
	return ds
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
