package api

import (
	"net/http"

	"github.com/shoptalk/shoptalk/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema provider is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}
	if !deps.Schema.Loaded() {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_NOT_LOADED", "schema has not been loaded yet", true, nil)
		return
	}

	current := deps.Schema.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":    current.Tables,
		"loaded_at": current.LoadedAt,
	})
}

func handleSchemaRefresh(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema provider is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	if err := deps.Schema.Refresh(r.Context()); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_REFRESH_FAILED", "schema refresh failed", true, map[string]any{
			"details": err.Error(),
		})
		return
	}

	current := deps.Schema.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "refreshed",
		"tables":    len(current.Tables),
		"loaded_at": current.LoadedAt,
	})
}
