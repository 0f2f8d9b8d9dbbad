package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// AnalyticsHeader is the fixed ordered set of column names an analytics
// export is expected to carry. When header forcing is enabled the
// uploaded file's own header row is discarded and replaced with these
// names, so the file must have exactly this many columns.
var AnalyticsHeader = []string{
	"Page title and screen name",
	"Country",
	"Views",
	"Users",
	"Views per user",
	"Average engagement time",
	"Event count",
	"Key events",
}

type DecodeOptions struct {
	// ForceHeader relabels columns to AnalyticsHeader regardless of the
	// file's first row.
	ForceHeader bool
}

// DecodeCSV reads a CSV document into a typed Dataset. The first record
// is the header row; every following record is data. Ragged rows are
// rejected by the reader.
func DecodeCSV(r io.Reader, opts DecodeOptions) (*Dataset, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv input is empty")
	}

	names := records[0]
	if opts.ForceHeader {
		if len(names) != len(AnalyticsHeader) {
			return nil, fmt.Errorf("expected %d columns for analytics header, got %d", len(AnalyticsHeader), len(names))
		}
		names = AnalyticsHeader
	} else {
		if err := validateHeader(names); err != nil {
			return nil, err
		}
	}

	values := make([][]string, len(names))
	for i := range values {
		values[i] = make([]string, 0, len(records)-1)
	}
	for _, record := range records[1:] {
		for i, cell := range record {
			values[i] = append(values[i], cell)
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{
			Name:   name,
			Type:   ClassifyValues(values[i]),
			Values: values[i],
		}
	}
	return New(columns)
}

func validateHeader(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
