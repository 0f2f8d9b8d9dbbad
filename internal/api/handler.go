// Package api exposes the conversational query pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ambuj00/conversational-db/internal/config"
	"github.com/Ambuj00/conversational-db/internal/observability"
	"github.com/Ambuj00/conversational-db/internal/session"
)

type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Logger            *slog.Logger
	Sessions          *session.Manager
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateSession(cfg, deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		handleListSessions(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(deps, w, r)
	})
	mux.HandleFunc("DELETE /v1/sessions/{session}", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteSession(deps, w, r)
	})
	mux.HandleFunc("PUT /v1/sessions/{session}/dataset", func(w http.ResponseWriter, r *http.Request) {
		handleReplaceDataset(cfg, deps, w, r)
	})
	mux.HandleFunc("PUT /v1/sessions/{session}/key", func(w http.ResponseWriter, r *http.Request) {
		handleSetAPIKey(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/preview", func(w http.ResponseWriter, r *http.Request) {
		handlePreview(cfg, deps, w, r)
	})

	mux.HandleFunc("POST /v1/sessions/{session}/queries", func(w http.ResponseWriter, r *http.Request) {
		handleSubmit(deps, w, r)
	})
	mux.HandleFunc("GET /v1/sessions/{session}/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{session}/query", func(w http.ResponseWriter, r *http.Request) {
		handleRawQuery(deps, w, r)
	})

	mux.HandleFunc("POST /v1/maintenance/sweep", func(w http.ResponseWriter, r *http.Request) {
		handleSweep(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

// writeSessionError maps session-layer failures onto the error
// envelope. Unrecognized errors fall through to a 500.
func writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	var genErr *session.GenerationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "SESSION_NOT_FOUND", "session was not found", false, nil)
	case errors.Is(err, session.ErrMissingCredential):
		writeError(ctx, w, http.StatusBadRequest, "MISSING_CREDENTIAL", session.WarnMissingCredential, false, nil)
	case errors.Is(err, session.ErrDuplicateRequest):
		writeError(ctx, w, http.StatusConflict, "DUPLICATE_REQUEST", session.WarnDuplicateRequest, false, nil)
	case errors.Is(err, session.ErrSessionLimit):
		writeError(ctx, w, http.StatusTooManyRequests, "SESSION_LIMIT", "session limit reached, close a session and retry", true, nil)
	case errors.As(err, &genErr):
		writeError(ctx, w, http.StatusBadGateway, "GENERATION_FAILED", "SQL generation failed", true, map[string]any{"details": genErr.Err.Error()})
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", err.Error(), true, nil)
	}
}
