package api

import "net/http"

func handleSweep(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	summary := deps.Sessions.Sweep()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}
