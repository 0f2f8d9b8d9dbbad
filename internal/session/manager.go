package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ambuj00/conversational-db/internal/dataset"
	"github.com/Ambuj00/conversational-db/internal/nl2sql"
	"github.com/Ambuj00/conversational-db/internal/observability"
	"github.com/Ambuj00/conversational-db/internal/render"
	"github.com/Ambuj00/conversational-db/internal/store"
)

type Config struct {
	OpenStore      store.OpenFunc
	StoreOptions   store.Options
	Translator     nl2sql.Translator
	FallbackAPIKey string
	MaxSessions    int
	IdleTTL        time.Duration
	Logger         *slog.Logger
}

// Manager owns every live session. Sessions are independent; the
// manager mutex only guards the map.
type Manager struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.OpenStore == nil {
		return nil, fmt.Errorf("store open function is required")
	}
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 100
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*Session),
	}, nil
}

// Create opens a fresh in-memory store, materializes the dataset into
// it, and registers the session.
func (m *Manager) Create(ctx context.Context, ds *dataset.Dataset, apiKey string) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		return Summary{}, ErrSessionLimit
	}

	st, err := store.Open(ctx, m.cfg.OpenStore, m.cfg.StoreOptions)
	if err != nil {
		return Summary{}, fmt.Errorf("open session store: %w", err)
	}
	if err := st.Load(ctx, ds); err != nil {
		_ = st.Close()
		return Summary{}, fmt.Errorf("materialize dataset: %w", err)
	}

	now := m.now()
	sess := &Session{
		id:       uuid.NewString(),
		dataset:  ds,
		store:    st,
		schema:   ds.SchemaDescription(),
		apiKey:   strings.TrimSpace(apiKey),
		created:  now,
		lastUsed: now,
	}
	m.sessions[sess.id] = sess

	observability.ObserveSessionCreated(ds.RowCount())
	observability.SetActiveSessions(len(m.sessions))
	m.cfg.Logger.Info("session created",
		slog.String("session_id", sess.id),
		slog.Int("columns", ds.ColumnCount()),
		slog.Int("rows", ds.RowCount()),
	)
	return sess.summary(), nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (m *Manager) Get(id string) (Summary, error) {
	sess, err := m.get(id)
	if err != nil {
		return Summary{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.summary(), nil
}

// List reports every live session ordered by creation time.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		summaries = append(summaries, sess.summary())
		sess.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// Delete closes the session's store and drops it from the map.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		observability.SetActiveSessions(len(m.sessions))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	m.cfg.Logger.Info("session closed", slog.String("session_id", id))
	return nil
}

// ReplaceDataset materializes a new dataset into the existing session
// table (drop-and-recreate) and regenerates the schema description.
// The conversation log survives the swap.
func (m *Manager) ReplaceDataset(ctx context.Context, id string, ds *dataset.Dataset) (Summary, error) {
	sess, err := m.get(id)
	if err != nil {
		return Summary{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.store.Load(ctx, ds); err != nil {
		return Summary{}, fmt.Errorf("materialize dataset: %w", err)
	}
	sess.dataset = ds
	sess.schema = ds.SchemaDescription()
	sess.lastUsed = m.now()
	return sess.summary(), nil
}

// SetAPIKey stores the session credential used for query generation.
func (m *Manager) SetAPIKey(id, apiKey string) error {
	sess, err := m.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.apiKey = strings.TrimSpace(apiKey)
	sess.lastUsed = m.now()
	return nil
}

// Submit runs the full pipeline for one request: credential and
// duplicate guards, SQL generation, execution, rendering, and the
// history append. Execution failures still append an entry carrying
// the normalized message; generation failures append nothing and roll
// the pending request back.
func (m *Manager) Submit(ctx context.Context, id, request string) (Entry, error) {
	sess, err := m.get(id)
	if err != nil {
		return Entry{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	request = strings.TrimSpace(request)
	apiKey := sess.apiKey
	if apiKey == "" {
		apiKey = strings.TrimSpace(m.cfg.FallbackAPIKey)
	}
	if apiKey == "" {
		observability.ObserveBlockedSubmission("missing_credential")
		return Entry{}, ErrMissingCredential
	}
	if request == sess.pending {
		observability.ObserveBlockedSubmission("duplicate_request")
		return Entry{}, ErrDuplicateRequest
	}

	previous := sess.pending
	sess.pending = request

	generated, err := m.cfg.Translator.Translate(ctx, nl2sql.Request{
		Request: request,
		Schema:  sess.schema,
		APIKey:  apiKey,
	})
	observability.ObserveTranslation(err)
	if err != nil {
		sess.pending = previous
		return Entry{}, &GenerationError{Err: err}
	}

	start := time.Now()
	result, execErr := sess.store.Query(ctx, generated.SQL)

	entry := Entry{
		Request:   request,
		SQL:       generated.SQL,
		Result:    buildResult(request, result, execErr),
		CreatedAt: m.now(),
	}
	sess.entries = append(sess.entries, entry)
	sess.lastUsed = m.now()

	observability.ObserveQueryExecution(executionOutcome(execErr), elapsed(start, result, execErr))
	if execErr != nil {
		m.cfg.Logger.Warn("query execution failed",
			slog.String("session_id", id),
			slog.String("sql", generated.SQL),
			slog.Any("error", execErr),
		)
	}
	return entry, nil
}

// Translate generates SQL for a request without executing it and
// without touching the conversation log.
func (m *Manager) Translate(ctx context.Context, id, request string) (nl2sql.Result, error) {
	sess, err := m.get(id)
	if err != nil {
		return nl2sql.Result{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	apiKey := sess.apiKey
	if apiKey == "" {
		apiKey = strings.TrimSpace(m.cfg.FallbackAPIKey)
	}
	if apiKey == "" {
		observability.ObserveBlockedSubmission("missing_credential")
		return nl2sql.Result{}, ErrMissingCredential
	}

	generated, err := m.cfg.Translator.Translate(ctx, nl2sql.Request{
		Request: strings.TrimSpace(request),
		Schema:  sess.schema,
		APIKey:  apiKey,
	})
	observability.ObserveTranslation(err)
	if err != nil {
		return nl2sql.Result{}, &GenerationError{Err: err}
	}
	sess.lastUsed = m.now()
	return generated, nil
}

// Query executes raw SQL against the session table without touching
// the conversation log. Store errors pass through unnormalized so the
// caller sees the structured kind.
func (m *Manager) Query(ctx context.Context, id, sqlText string, rowLimit int) (store.Result, error) {
	sess, err := m.get(id)
	if err != nil {
		return store.Result{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := time.Now()
	result, execErr := sess.store.QueryWithLimit(ctx, sqlText, rowLimit)
	observability.ObserveQueryExecution(executionOutcome(execErr), elapsed(start, result, execErr))
	if execErr != nil {
		return store.Result{}, execErr
	}
	sess.lastUsed = m.now()
	return result, nil
}

// History returns a copy of the ordered conversation log.
func (m *Manager) History(id string) ([]Entry, error) {
	sess, err := m.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	entries := make([]Entry, len(sess.entries))
	copy(entries, sess.entries)
	return entries, nil
}

// Schema returns the schema description plus per-column details.
func (m *Manager) Schema(id string) (string, []ColumnInfo, error) {
	sess, err := m.get(id)
	if err != nil {
		return "", nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.schema, sess.columns(), nil
}

// Preview returns dataset rows after skipping the first skip rows.
func (m *Manager) Preview(id string, skip, limit int) ([]string, [][]string, error) {
	sess, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	names := make([]string, 0, sess.dataset.ColumnCount())
	for _, col := range sess.dataset.Columns() {
		names = append(names, col.Name)
	}
	return names, sess.dataset.Preview(skip, limit), nil
}

func buildResult(request string, result store.Result, execErr error) EntryResult {
	if execErr != nil {
		return EntryResult{Kind: ResultError, Text: userMessage(execErr)}
	}
	if len(result.Rows) == 0 {
		return EntryResult{Kind: ResultEmpty, Text: render.EmptyMessage}
	}
	if render.WantsTable(request) {
		return EntryResult{
			Kind:    ResultTable,
			Columns: result.Columns,
			Rows:    result.Rows,
			Text:    render.Table(result.Columns, result.Rows),
		}
	}
	return EntryResult{
		Kind:    ResultText,
		Columns: result.Columns,
		Rows:    result.Rows,
		Text:    render.PlainText(result.Columns, result.Rows),
	}
}

func userMessage(err error) string {
	var queryErr *store.QueryError
	if errors.As(err, &queryErr) {
		return queryErr.UserMessage()
	}
	return store.KindExecution.Message()
}

func executionOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var queryErr *store.QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Kind.String()
	}
	return store.KindExecution.String()
}

func elapsed(start time.Time, result store.Result, err error) time.Duration {
	if err == nil && result.Duration > 0 {
		return result.Duration
	}
	return time.Since(start)
}
