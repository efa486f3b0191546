package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"rwpay/internal/domain/reports"
)

// CSV writes the header row and data rows. Title and summary are omitted so
// the file loads cleanly into spreadsheets.
type CSV struct{}

func (CSV) Render(w io.Writer, t *reports.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
