// Package report renders article and return lists as PDF or XLSX documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/assetdesk/internal/model"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	PDF   Format = "pdf"
	Excel Format = "excel"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts "pdf", "excel" and "xlsx", ignoring case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "pdf":
		return PDF, nil
	case "excel", "xlsx":
		return Excel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of documents in format f.
func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == PDF {
		return "pdf"
	}
	return "xlsx"
}

// column describes one table column. Width is in millimetres for PDF and
// characters for XLSX.
type column struct {
	title   string
	width   float64
	numeric bool
}

// table is the format independent form of a report.
type table struct {
	title   string
	columns []column
	rows    [][]any
	footer  []any
}

// Articles writes the article report to w.
func Articles(w io.Writer, f Format, articles []model.Article) error {
	return render(w, f, articleTable(articles))
}

// Returns writes the return receipt report to w.
func Returns(w io.Writer, f Format, receipts []model.Receipt) error {
	return render(w, f, returnTable(receipts))
}

func render(w io.Writer, f Format, t table) error {
	switch f {
	case PDF:
		return writePDF(w, t)
	case Excel:
		return writeXLSX(w, t)
	}
	return ErrUnknownFormat
}

func articleTable(articles []model.Article) table {
	t := table{
		title: "Inventory Articles",
		columns: []column{
			{title: "Article", width: 34},
			{title: "Description", width: 50},
			{title: "Date Acquired", width: 24},
			{title: "Property No.", width: 26},
			{title: "Unit", width: 14},
			{title: "Unit Value", width: 24, numeric: true},
			{title: "Balance", width: 16, numeric: true},
			{title: "On Hand", width: 16, numeric: true},
			{title: "Total Amount", width: 26, numeric: true},
			{title: "Actual User", width: 34},
		},
	}

	total := decimal.Zero
	for _, a := range articles {
		t.rows = append(t.rows, []any{
			a.Article, a.Description, a.DateAcquired, a.PropertyNumber, a.Unit,
			a.UnitValue, a.BalancePerCard, a.OnHandPerCount, a.TotalAmount, a.ActualUser,
		})
		total = total.Add(a.TotalAmount)
	}
	t.footer = []any{"Total", "", "", "", "", "", "", "", total, ""}
	return t
}

func returnTable(receipts []model.Receipt) table {
	t := table{
		title: "Returned Property",
		columns: []column{
			{title: "RRSP No.", width: 26},
			{title: "Date", width: 22},
			{title: "Description", width: 48},
			{title: "Qty", width: 12, numeric: true},
			{title: "ICS No.", width: 22},
			{title: "Amount", width: 24, numeric: true},
			{title: "End User", width: 32},
			{title: "Returned By", width: 32},
			{title: "Received By", width: 32},
			{title: "Remarks", width: 30},
		},
	}

	total := decimal.Zero
	for _, r := range receipts {
		t.rows = append(t.rows, []any{
			r.RRSPNo, r.Date, r.Description, r.Quantity, r.ICSNo, r.Amount,
			r.EndUser, r.ReturnedBy.Name, r.ReceivedBy.Name, r.Remarks,
		})
		total = total.Add(r.Amount)
	}
	t.footer = []any{"Total", "", "", "", "", total, "", "", "", ""}
	return t
}

// text formats a cell value for display.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case decimal.Decimal:
		return t.StringFixed(2)
	default:
		return fmt.Sprint(v)
	}
}
