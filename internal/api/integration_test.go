package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ambuj00/conversational-db/internal/nl2sql"
	"github.com/Ambuj00/conversational-db/internal/session"
	"github.com/Ambuj00/conversational-db/internal/store/sqlite"
)

// TestPipelineEndToEnd drives the whole pipeline through the HTTP API
// with a real OpenAI-compatible translator pointed at a scripted
// completion server: upload, submit, history replay.
func TestPipelineEndToEnd(t *testing.T) {
	var prompts []string
	responses := map[string]string{
		"show all rows as a table": "SELECT * FROM data",
		"count the rows":           "```sql\nSELECT COUNT(*) FROM data\n```",
		"sum the orders":           "SELECT SUM(amount) FROM orders",
	}
	completions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode completion request: %v", err)
		}
		prompt := payload.Messages[len(payload.Messages)-1].Content
		prompts = append(prompts, prompt)

		sql := "SELECT 1"
		for request, scripted := range responses {
			if strings.Contains(prompt, request) {
				sql = scripted
			}
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": sql}},
			},
		})
		_, _ = w.Write(body)
	}))
	defer completions.Close()

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{BaseURL: completions.URL})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	manager, err := session.NewManager(session.Config{
		OpenStore:  sqlite.Open,
		Translator: translator,
	})
	if err != nil {
		t.Fatalf("session.NewManager() error = %v", err)
	}
	t.Cleanup(manager.Close)

	handler := NewHandler(newTestConfig(t), Dependencies{Sessions: manager})
	id := createSession(t, handler, sampleCSV, "sk-integration")

	// Tabular request renders a table.
	rec := postJSON(handler, "/v1/sessions/"+id+"/queries", map[string]string{"request": "show all rows as a table"})
	if rec.Code != http.StatusOK {
		t.Fatalf("table submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var entry session.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Result.Kind != session.ResultTable || len(entry.Result.Rows) != 2 {
		t.Fatalf("table entry = %+v", entry.Result)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "id (int64), name (object)") {
		t.Fatalf("prompt missing schema description: %v", prompts)
	}

	// Count request renders plain text and strips the markdown fence.
	rec = postJSON(handler, "/v1/sessions/"+id+"/queries", map[string]string{"request": "count the rows"})
	if rec.Code != http.StatusOK {
		t.Fatalf("count submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Result.Kind != session.ResultText {
		t.Fatalf("count entry kind = %q, want text", entry.Result.Kind)
	}
	if entry.SQL != "SELECT COUNT(*) FROM data" {
		t.Fatalf("count entry sql = %q", entry.SQL)
	}

	// A generated query against a missing table appends a normalized
	// error entry.
	rec = postJSON(handler, "/v1/sessions/"+id+"/queries", map[string]string{"request": "sum the orders"})
	if rec.Code != http.StatusOK {
		t.Fatalf("orders submit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Result.Kind != session.ResultError || entry.Result.Text != "The query could not find the specified table." {
		t.Fatalf("orders entry = %+v", entry.Result)
	}

	// History replays all three entries in order.
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/history", nil)
	recHist := httptest.NewRecorder()
	handler.ServeHTTP(recHist, req)
	var payload struct {
		Entries []session.Entry `json:"entries"`
	}
	if err := json.Unmarshal(recHist.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.Entries) != 3 {
		t.Fatalf("history entries = %d, want 3", len(payload.Entries))
	}
	for i, request := range []string{"show all rows as a table", "count the rows", "sum the orders"} {
		if payload.Entries[i].Request != request {
			t.Fatalf("history[%d].Request = %q, want %q", i, payload.Entries[i].Request, request)
		}
	}
}

// TestPipelineGenerationOutage covers a dead completion endpoint: the
// submission surfaces a 502 and leaves no history behind.
func TestPipelineGenerationOutage(t *testing.T) {
	completions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, `{"error":"overloaded"}`)
	}))
	defer completions.Close()

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{BaseURL: completions.URL})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}
	manager, err := session.NewManager(session.Config{
		OpenStore:  sqlite.Open,
		Translator: translator,
	})
	if err != nil {
		t.Fatalf("session.NewManager() error = %v", err)
	}
	t.Cleanup(manager.Close)

	handler := NewHandler(newTestConfig(t), Dependencies{Sessions: manager})
	id := createSession(t, handler, sampleCSV, "sk-integration")

	rec := postJSON(handler, "/v1/sessions/"+id+"/queries", map[string]string{"request": "show rows"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/history", nil)
	recHist := httptest.NewRecorder()
	handler.ServeHTTP(recHist, req)
	if !strings.Contains(recHist.Body.String(), `"entries":[]`) {
		t.Fatalf("history after outage = %s", recHist.Body.String())
	}
}
