package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Ambuj00/conversational-db/internal/store"
)

type submitRequest struct {
	Request string `json:"request"`
}

type translateResponse struct {
	SQL   string `json:"sql"`
	Model string `json:"model"`
}

type rawQueryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type rawQueryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleSubmit(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request submitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Request) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "REQUEST_REQUIRED", "request is required", false, nil)
		return
	}

	entry, err := deps.Sessions.Submit(r.Context(), r.PathValue("session"), request.Request)
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	entries, err := deps.Sessions.History(r.PathValue("session"))
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request submitRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Request) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "REQUEST_REQUIRED", "request is required", false, nil)
		return
	}

	generated, err := deps.Sessions.Translate(r.Context(), r.PathValue("session"), request.Request)
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{SQL: generated.SQL, Model: generated.Model})
}

func handleRawQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request rawQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Sessions.Query(r.Context(), r.PathValue("session"), request.SQL, request.RowLimit)
	if err != nil {
		var queryErr *store.QueryError
		if errors.As(err, &queryErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", queryErr.UserMessage(), false, map[string]any{
				"kind": queryErr.Kind.String(),
			})
			return
		}
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rawQueryResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats:   map[string]any{"duration_ms": result.Duration.Milliseconds()},
	})
}
