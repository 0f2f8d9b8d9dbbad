package api

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Ambuj00/conversational-db/internal/config"
	"github.com/Ambuj00/conversational-db/internal/dataset"
)

// decodeUpload reads the multipart "file" field into a typed dataset,
// honoring the configured upload cap and header policy.
func decodeUpload(cfg config.Config, w http.ResponseWriter, r *http.Request) (*dataset.Dataset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Dataset.MaxUploadBytes)
	if err := r.ParseMultipartForm(cfg.Dataset.MaxUploadBytes); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file field is required: %w", err)
	}
	defer func(file multipart.File) { _ = file.Close() }(file)

	ds, err := dataset.DecodeCSV(file, dataset.DecodeOptions{ForceHeader: cfg.Dataset.ForceHeader})
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return ds, nil
}

func handleCreateSession(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	ds, err := decodeUpload(cfg, w, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error(), false, nil)
		return
	}

	summary, err := deps.Sessions.Create(r.Context(), ds, r.FormValue("api_key"))
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func handleListSessions(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": deps.Sessions.List()})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	summary, err := deps.Sessions.Get(r.PathValue("session"))
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := deps.Sessions.Delete(r.PathValue("session")); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "closed"})
}

func handleReplaceDataset(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	ds, err := decodeUpload(cfg, w, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error(), false, nil)
		return
	}

	summary, err := deps.Sessions.ReplaceDataset(r.Context(), r.PathValue("session"), ds)
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func handleSetAPIKey(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request struct {
		APIKey string `json:"api_key"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid key request body", false, map[string]any{"details": err.Error()})
		return
	}

	if err := deps.Sessions.SetAPIKey(r.PathValue("session"), request.APIKey); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	schema, columns, err := deps.Sessions.Schema(r.PathValue("session"))
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":   "data",
		"schema":  schema,
		"columns": columns,
	})
}

func handlePreview(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	skip := cfg.Dataset.PreviewSkipRows
	if raw := r.URL.Query().Get("skip"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_SKIP", "skip must be a non-negative integer", false, nil)
			return
		}
		skip = parsed
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer", false, nil)
			return
		}
		limit = parsed
	}

	columns, rows, err := deps.Sessions.Preview(r.PathValue("session"), skip, limit)
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": columns,
		"rows":    rows,
		"skip":    skip,
	})
}
