package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/store"
)

// LogsHandler serves the activity log.
type LogsHandler struct {
	DB *sql.DB
}

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// List handles GET /api/logs.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLogLimit)
	if limit < 1 || limit > maxLogLimit {
		limit = defaultLogLimit
	}
	offset := max(queryInt(r, "offset", 0), 0)

	entries, err := store.ListActivity(r.Context(), h.DB, limit, offset)
	if err != nil {
		dbError(w, "failed to list activity", err)
		return
	}
	if entries == nil {
		entries = []model.Activity{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
