package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"rwpay/internal/domain/reports"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins
	pdfRowHeight = 6.0
)

// PDF renders a landscape A4 table with repeated headers on each page.
type PDF struct{}

func (PDF) Render(w io.Writer, t *reports.Table) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	widths := columnWidths(t)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range t.Columns {
			pdf.CellFormat(widths[i], pdfRowHeight+1, tr(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(t.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	header()
	for _, row := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom-pdfRowHeight {
			pdf.AddPage()
			header()
		}
		for i := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], pdfRowHeight, tr(cell), "1", 0, align(cell), false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(t.Summary) > 0 {
		pdf.Ln(4)
		for _, kv := range t.Summary {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(60, pdfRowHeight, tr(kv[0]), "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, pdfRowHeight, tr(kv[1]), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// columnWidths splits the page proportionally to the longest cell of each column.
func columnWidths(t *reports.Table) []float64 {
	n := len(t.Columns)
	if n == 0 {
		return nil
	}
	longest := make([]int, n)
	for i, c := range t.Columns {
		longest[i] = max(len(c), 4)
	}
	for _, row := range t.Rows {
		for i := 0; i < n && i < len(row); i++ {
			longest[i] = max(longest[i], min(len(row[i]), 40))
		}
	}
	total := 0
	for _, l := range longest {
		total += l
	}
	widths := make([]float64, n)
	for i, l := range longest {
		widths[i] = pdfPageWidth * float64(l) / float64(total)
	}
	return widths
}

// align right-justifies numbers, dates and amounts with a currency prefix.
func align(cell string) string {
	if _, rest, ok := strings.Cut(cell, " "); ok {
		cell = rest
	}
	if cell == "" {
		return "L"
	}
	for _, r := range cell {
		if (r < '0' || r > '9') && r != '.' && r != ',' && r != '-' {
			return "L"
		}
	}
	return "R"
}
