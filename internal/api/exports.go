package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/assetdesk/internal/model"
	"github.com/erazemk/assetdesk/internal/report"
	"github.com/erazemk/assetdesk/internal/store"
)

// ExportsHandler renders downloadable reports.
type ExportsHandler struct {
	DB *sql.DB
}

// dateRange reads the optional from/to query parameters (YYYY-MM-DD).
func dateRange(r *http.Request) (string, string, error) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return "", "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}
	return from, to, nil
}

// Products handles GET /export-products/{format}.
func (h *ExportsHandler) Products(w http.ResponseWriter, r *http.Request) {
	format, from, to, ok := exportParams(w, r)
	if !ok {
		return
	}

	articles, err := store.ListArticles(r.Context(), h.DB, store.ArticleFilter{View: model.ViewAdmin, From: from, To: to})
	if err != nil {
		dbError(w, "failed to list products for export", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Articles(&buf, format, articles); err != nil {
		slog.Error("failed to render products report", "format", format, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	sendFile(w, "products", format, buf.Bytes())
}

// Returns handles GET /export-returns/{format}.
func (h *ExportsHandler) Returns(w http.ResponseWriter, r *http.Request) {
	format, from, to, ok := exportParams(w, r)
	if !ok {
		return
	}

	receipts, err := store.ListReceipts(r.Context(), h.DB, store.ReceiptFilter{From: from, To: to})
	if err != nil {
		dbError(w, "failed to list returns for export", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Returns(&buf, format, receipts); err != nil {
		slog.Error("failed to render returns report", "format", format, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	sendFile(w, "returns", format, buf.Bytes())
}

func exportParams(w http.ResponseWriter, r *http.Request) (report.Format, string, string, bool) {
	format, err := report.ParseFormat(r.PathValue("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "format must be pdf or excel")
		return "", "", "", false
	}

	from, to, err := dateRange(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return "", "", "", false
	}
	return format, from, to, true
}

func sendFile(w http.ResponseWriter, name string, format report.Format, data []byte) {
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), format.Ext())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
