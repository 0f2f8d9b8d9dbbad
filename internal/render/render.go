// Package render formats query results for the conversational surface.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// EmptyMessage is the fixed text shown when a query succeeds but
// returns no rows.
const EmptyMessage = "The query executed successfully but returned no results."

// WantsTable reports whether the request asked for tabular output. The
// match is a case-insensitive substring check on the word "table".
func WantsTable(request string) bool {
	return strings.Contains(strings.ToLower(request), "table")
}

// Table renders columns and rows as a bordered ASCII table with a
// header row.
func Table(columns []string, rows [][]any) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(formatRows(rows))
	table.Render()
	return strings.TrimRight(b.String(), "\n")
}

// PlainText renders columns and rows as borderless aligned text, the
// shape a dataframe prints as.
func PlainText(columns []string, rows [][]any) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(formatRows(rows))
	table.Render()
	return strings.TrimRight(b.String(), "\n")
}

func formatRows(rows [][]any) [][]string {
	formatted := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for c, value := range row {
			cells[c] = FormatCell(value)
		}
		formatted[i] = cells
	}
	return formatted
}

// FormatCell renders a single scanned SQL value. NULL prints empty,
// floats keep their shortest round-trip form.
func FormatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}
