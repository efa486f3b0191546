// Package export renders report tables as PDF, XLSX and CSV.
package export

import "rwpay/internal/domain/reports"

// Renderers returns one renderer per supported format.
func Renderers() map[reports.Format]reports.Renderer {
	return map[reports.Format]reports.Renderer{
		reports.FormatPDF:  PDF{},
		reports.FormatXLSX: XLSX{},
		reports.FormatCSV:  CSV{},
	}
}
