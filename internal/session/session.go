// Package session owns the per-upload conversational state: the
// decoded dataset, its relational table, the append-only conversation
// log, and the pending-request duplicate guard.
package session

import (
	"sync"
	"time"

	"github.com/Ambuj00/conversational-db/internal/dataset"
	"github.com/Ambuj00/conversational-db/internal/store"
)

// ResultKind tags how a conversation entry's result renders.
type ResultKind string

const (
	ResultTable ResultKind = "table"
	ResultText  ResultKind = "text"
	ResultEmpty ResultKind = "empty"
	ResultError ResultKind = "error"
)

// EntryResult is the rendered outcome of one executed query. Columns
// and Rows are populated for table and text kinds; Text always carries
// the rendered form shown to the user.
type EntryResult struct {
	Kind    ResultKind `json:"kind"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]any    `json:"rows,omitempty"`
	Text    string     `json:"text"`
}

// Entry is one immutable conversation record: the request, the SQL the
// model generated for it, and the rendered result.
type Entry struct {
	Request   string      `json:"request"`
	SQL       string      `json:"sql"`
	Result    EntryResult `json:"result"`
	CreatedAt time.Time   `json:"created_at"`
}

// ColumnInfo describes one dataset column for the schema endpoint.
type ColumnInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// Summary is the session view returned by the API.
type Summary struct {
	ID         string    `json:"session_id"`
	Columns    int       `json:"columns"`
	Rows       int       `json:"rows"`
	Schema     string    `json:"schema"`
	Entries    int       `json:"entries"`
	HasAPIKey  bool      `json:"has_api_key"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Session holds everything one upload owns. The mutex serializes
// submissions and dataset replacement; the store rides a single pinned
// connection and dies with the session.
type Session struct {
	id string

	mu       sync.Mutex
	dataset  *dataset.Dataset
	store    *store.Store
	schema   string
	entries  []Entry
	pending  string
	apiKey   string
	created  time.Time
	lastUsed time.Time
}

func (s *Session) ID() string {
	return s.id
}

// summary snapshots the session. Caller holds s.mu.
func (s *Session) summary() Summary {
	return Summary{
		ID:         s.id,
		Columns:    s.dataset.ColumnCount(),
		Rows:       s.dataset.RowCount(),
		Schema:     s.schema,
		Entries:    len(s.entries),
		HasAPIKey:  s.apiKey != "",
		CreatedAt:  s.created,
		LastUsedAt: s.lastUsed,
	}
}

func (s *Session) columns() []ColumnInfo {
	infos := make([]ColumnInfo, 0, s.dataset.ColumnCount())
	for _, col := range s.dataset.Columns() {
		infos = append(infos, ColumnInfo{Name: col.Name, DType: col.Type.String()})
	}
	return infos
}
