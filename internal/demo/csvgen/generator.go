// Package csvgen writes deterministic analytics-flavored CSV files
// matching the eight-column export shape the service expects, for
// demos and for exercising the forced-header upload path.
package csvgen

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"github.com/Ambuj00/conversational-db/internal/dataset"
)

type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

var pageTitles = []string{
	"Home", "Pricing", "Docs", "Blog", "About", "Careers", "Support", "Changelog",
}

var countries = []string{
	"United States", "Germany", "United Kingdom", "India", "Japan", "Brazil",
}

// NextRow produces one data row in the analytics column order: page
// title, country, views, users, views per user, average engagement
// time, event count, key events.
func (g *Generator) NextRow() []string {
	views := g.rnd.Intn(5000) + 10
	users := g.rnd.Intn(views) + 1
	viewsPerUser := round2(float64(views) / float64(users))
	engagement := round2(5 + g.rnd.Float64()*175)
	eventCount := views + g.rnd.Intn(views*2)
	keyEvents := 0
	if users >= 4 {
		// At most half the users convert.
		keyEvents = g.rnd.Intn(users / 2)
	}

	return []string{
		pickOne(g.rnd, pageTitles),
		pickOne(g.rnd, countries),
		strconv.Itoa(views),
		strconv.Itoa(users),
		formatFloat(viewsPerUser),
		formatFloat(engagement),
		strconv.Itoa(eventCount),
		strconv.Itoa(keyEvents),
	}
}

// WriteCSV emits a header row plus rows data rows.
func (g *Generator) WriteCSV(w io.Writer, rows int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(dataset.AnalyticsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < rows; i++ {
		if err := writer.Write(g.NextRow()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func pickOne(rnd *rand.Rand, values []string) string {
	return values[rnd.Intn(len(values))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
