// Package dataset decodes uploaded CSV files into typed, columnar
// in-memory datasets and derives the schema description used to ground
// SQL generation.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnType is the closed set of column kinds a dataset column can
// carry. Classification happens once at decode time; everything
// downstream branches on the tag, never on type-name strings.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeFloat
)

// String reports the dtype name surfaced in schema descriptions.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "int64"
	case TypeFloat:
		return "float64"
	default:
		return "object"
	}
}

// SQLType reports the column type used when materializing the dataset
// into a relational table.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

type Column struct {
	Name   string
	Type   ColumnType
	Values []string
}

type Dataset struct {
	columns []Column
	rows    int
}

func New(columns []Column) (*Dataset, error) {
	rows := 0
	for i, col := range columns {
		if i == 0 {
			rows = len(col.Values)
			continue
		}
		if len(col.Values) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", col.Name, len(col.Values), rows)
		}
	}
	return &Dataset{columns: columns, rows: rows}, nil
}

func (d *Dataset) Columns() []Column {
	return d.columns
}

func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

func (d *Dataset) RowCount() int {
	return d.rows
}

// Row assembles the values at index i across all columns in column
// order.
func (d *Dataset) Row(i int) []string {
	row := make([]string, len(d.columns))
	for c, col := range d.columns {
		row[c] = col.Values[i]
	}
	return row
}

// SchemaDescription lists every column as "name (dtype)" joined with
// ", ". Deterministic for an unchanged dataset; empty for a dataset
// with no columns.
func (d *Dataset) SchemaDescription() string {
	var b strings.Builder
	for i, col := range d.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%s)", col.Name, col.Type)
	}
	return b.String()
}

// Preview returns up to limit rows after skipping the first skip data
// rows. A limit <= 0 means no cap.
func (d *Dataset) Preview(skip, limit int) [][]string {
	if skip < 0 {
		skip = 0
	}
	if skip >= d.rows {
		return [][]string{}
	}
	end := d.rows
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	rows := make([][]string, 0, end-skip)
	for i := skip; i < end; i++ {
		rows = append(rows, d.Row(i))
	}
	return rows
}

// ClassifyValues infers the kind of a column from its raw cell values,
// mirroring dataframe-style inference: all-integer cells with no blanks
// are int64, numeric cells (or integer cells with blanks) are float64,
// anything else is object. A column with no rows stays object.
func ClassifyValues(values []string) ColumnType {
	if len(values) == 0 {
		return TypeText
	}

	allInteger := true
	allFloat := true
	hasEmpty := false
	nonEmpty := 0

	for _, value := range values {
		if value == "" {
			hasEmpty = true
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			allInteger = false
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			allFloat = false
		}
	}

	switch {
	case nonEmpty == 0:
		// Blank cells read as missing values, which forces a float
		// column the way dataframes promote all-NaN columns.
		return TypeFloat
	case allInteger && !hasEmpty:
		return TypeInteger
	case allFloat:
		return TypeFloat
	default:
		return TypeText
	}
}
