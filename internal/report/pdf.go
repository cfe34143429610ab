package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const rowHeight = 7

func writePDF(w io.Writer, t table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(8, 10, 8)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range t.columns {
			pdf.CellFormat(c.width, rowHeight, tr(c.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 10, tr(t.title), "", 1, "L", false, 0, "")
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-8)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	row := func(cells []any, fill bool) {
		for i, c := range t.columns {
			align := "L"
			if c.numeric {
				align = "R"
			}
			pdf.CellFormat(c.width, rowHeight, tr(truncate(pdf, text(cells[i]), c.width)), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	for _, cells := range t.rows {
		row(cells, false)
	}
	if t.footer != nil {
		pdf.SetFont("Helvetica", "B", 8)
		row(t.footer, true)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// truncate shortens s so it fits in a cell of the given width.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	max := width - 2
	if pdf.GetStringWidth(s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > max {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
