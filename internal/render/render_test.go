package render

import (
	"strings"
	"testing"
)

func TestWantsTable(t *testing.T) {
	tests := []struct {
		request string
		want    bool
	}{
		{"show all rows as a table", true},
		{"Render a TABLE of countries", true},
		{"count the rows", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := WantsTable(tc.request); got != tc.want {
			t.Errorf("WantsTable(%q) = %v, want %v", tc.request, got, tc.want)
		}
	}
}

func TestTableRendersHeaderAndRows(t *testing.T) {
	out := Table([]string{"id", "name"}, [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
	})

	for _, want := range []string{"id", "name", "1", "a", "2", "b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Table() output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "+") {
		t.Fatalf("Table() output has no border:\n%s", out)
	}
}

func TestPlainTextHasNoBorder(t *testing.T) {
	out := PlainText([]string{"count"}, [][]any{{int64(2)}})

	if !strings.Contains(out, "count") || !strings.Contains(out, "2") {
		t.Fatalf("PlainText() output missing content:\n%s", out)
	}
	if strings.Contains(out, "+--") {
		t.Fatalf("PlainText() output has a border:\n%s", out)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"bytes", []byte("raw"), "raw"},
		{"int64", int64(42), "42"},
		{"float64", 2.5, "2.5"},
		{"float64 whole", float64(3), "3"},
		{"bool", true, "true"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatCell(tc.value); got != tc.want {
				t.Fatalf("FormatCell(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
