package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/types"
	"rwpay/internal/domain"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reconciliation"
)

const (
	maxExportRows   = 10000
	financialMonths = 12
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPDF, FormatXLSX, FormatCSV:
		return f, nil
	}
	return "", apperror.NewInvalidArgument("format", fmt.Sprintf("unknown export format %q (expected pdf, xlsx or csv)", s))
}

type ExportKind string

const (
	ExportResidents ExportKind = "residents"
	ExportPayments  ExportKind = "payments"
	ExportMonthly   ExportKind = "monthly"
	// ExportFinancial covers the twelve months ending at the requested month.
	ExportFinancial ExportKind = "financial"
	// ExportInvoice labels invoice renders in export metrics. Export does not accept it.
	ExportInvoice ExportKind = "invoice"
)

func ParseExportKind(s string) (ExportKind, error) {
	switch k := ExportKind(strings.ToLower(s)); k {
	case ExportResidents, ExportPayments, ExportMonthly, ExportFinancial:
		return k, nil
	}
	return "", apperror.NewInvalidArgument("kind",
		fmt.Sprintf("unknown report %q (expected residents, payments, monthly or financial)", s))
}

// Table is a rendered-format-independent report: a header, rows of
// preformatted cells and a summary block.
type Table struct {
	Title    string
	Subtitle string
	Columns  []string
	Rows     [][]string
	Summary  [][2]string

	// Raw runs parallel to Rows. A non-nil entry is the number behind the
	// formatted cell, for renderers that store typed values.
	Raw [][]any
}

// AddRow appends cells with their optional raw values.
func (t *Table) AddRow(cells []string, raw []any) {
	for len(t.Raw) < len(t.Rows) {
		t.Raw = append(t.Raw, nil)
	}
	t.Rows = append(t.Rows, cells)
	t.Raw = append(t.Raw, raw)
}

// RawAt returns the raw value of a cell or nil when the cell is text only.
func (t *Table) RawAt(row, col int) any {
	if row >= len(t.Raw) || col >= len(t.Raw[row]) {
		return nil
	}
	return t.Raw[row][col]
}

// Renderer writes a table in one output format.
type Renderer interface {
	Render(w io.Writer, t *Table) error
}

// Rendered is an export ready to be sent to the client.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export builds the requested report for the month and renders it.
func (s *Service) Export(ctx context.Context, kind ExportKind, format Format, month reconciliation.Month) (*Rendered, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, apperror.NewInvalidArgument("format", fmt.Sprintf("export format %q is not available", format))
	}

	assoc, err := s.settings.Association(ctx)
	if err != nil {
		return nil, err
	}
	billing, err := s.settings.Billing(ctx)
	if err != nil {
		return nil, err
	}

	var table *Table
	switch kind {
	case ExportResidents:
		table, err = s.residentsTable(ctx)
	case ExportPayments:
		table, err = s.paymentsTable(ctx, month, billing.Currency)
	case ExportMonthly:
		table, err = s.monthlyTable(ctx, month, billing.Currency)
	case ExportFinancial:
		table, err = s.financialTable(ctx, month, billing.Currency)
	default:
		return nil, apperror.NewInvalidArgument("kind", fmt.Sprintf("unknown report %q", kind))
	}
	if err != nil {
		return nil, err
	}
	table.Title = assoc.Name
	switch kind {
	case ExportResidents:
		table.Subtitle = "Daftar Warga"
	case ExportFinancial:
		table.Subtitle = fmt.Sprintf("Laporan Keuangan %s s/d %s",
			month.AddMonths(-(financialMonths - 1)).String(), month.String())
	case ExportPayments:
		table.Subtitle = "Pembayaran " + month.String()
	default:
		table.Subtitle = "Rekap Bulanan " + month.String()
	}

	return s.render(kind, format, renderer, table, fmt.Sprintf("%s-%s.%s", kind, month.String(), format))
}

func (s *Service) render(kind ExportKind, format Format, renderer Renderer, table *Table, filename string) (*Rendered, error) {
	var buf bytes.Buffer
	if err := renderer.Render(&buf, table); err != nil {
		return nil, fmt.Errorf("render %s %s: %w", kind, format, err)
	}

	if s.observer != nil {
		s.observer.Exported(kind, format, buf.Len())
	}
	return &Rendered{
		Filename:    filename,
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

func (s *Service) residentsTable(ctx context.Context) (*Table, error) {
	res, err := s.residents.List(ctx, domain.ListFilter{OrderBy: "house_number", Limit: maxExportRows})
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: []string{"No", "Nama", "No. Rumah", "RT", "Telepon", "Status"}}
	active := 0
	for i, r := range res.Items {
		phone := "-"
		if r.Phone != nil {
			phone = *r.Phone
		}
		t.AddRow([]string{
			strconv.Itoa(i + 1), r.Name, r.HouseNumber, r.RT, phone, string(r.Status),
		}, []any{int64(i + 1)})
		if r.IsActive() {
			active++
		}
	}
	t.Summary = [][2]string{
		{"Total warga", strconv.Itoa(len(res.Items))},
		{"Aktif", strconv.Itoa(active)},
	}
	return t, nil
}

func (s *Service) paymentsTable(ctx context.Context, month reconciliation.Month, currency string) (*Table, error) {
	bills, err := s.UnpaidBills(ctx, month)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.ListPaid(ctx, month.FirstDay(), month.LastDay())
	if err != nil {
		return nil, err
	}
	names, err := s.residentNames(ctx)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []string{"No. Invoice", "Warga", "Kategori", "Jatuh Tempo", "Status", "Tanggal Bayar", "Jumlah"}}
	var paidTotal, openTotal types.Money
	for _, p := range paid {
		t.AddRow(paymentRow(p, names[p.ResidentID.String()], currency))
		paidTotal += p.Amount
	}
	for _, b := range bills {
		t.AddRow(paymentRow(b.Payment, b.ResidentName, currency))
		openTotal += b.Amount
	}
	t.Summary = [][2]string{
		{"Terbayar", FormatMoney(paidTotal, currency)},
		{"Belum dibayar", FormatMoney(openTotal, currency)},
	}
	return t, nil
}

func (s *Service) residentNames(ctx context.Context) (map[string]string, error) {
	res, err := s.residents.List(ctx, domain.ListFilter{IncludeDeleted: true, Limit: maxExportRows})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(res.Items))
	for _, r := range res.Items {
		names[r.ID.String()] = r.Name
	}
	return names, nil
}

func paymentRow(p *payment.Payment, residentName, currency string) ([]string, []any) {
	paidDate := "-"
	if p.PaidDate != nil {
		paidDate = p.PaidDate.Format("2006-01-02")
	}
	cells := []string{
		p.Number,
		residentName,
		string(p.Category),
		p.DueDate.Format("2006-01-02"),
		string(p.Status),
		paidDate,
		FormatMoney(p.Amount, currency),
	}
	raw := make([]any, len(cells))
	raw[len(cells)-1] = int64(p.Amount)
	return cells, raw
}

func (s *Service) monthlyTable(ctx context.Context, month reconciliation.Month, currency string) (*Table, error) {
	stat, err := s.MonthlyStatistic(ctx, month)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []string{"Warga", "No. Rumah", "RT", "Status", "Belum Dibayar"}}
	for _, r := range stat.FullyPaid {
		t.AddRow([]string{r.Name, r.HouseNumber, r.RT, "Lunas", "-"}, nil)
	}
	for _, r := range stat.PartiallyPaid {
		missing := make([]string, len(r.Missing))
		for i, c := range r.Missing {
			missing[i] = string(c)
		}
		t.AddRow([]string{r.Name, r.HouseNumber, r.RT, "Sebagian", strings.Join(missing, ", ")}, nil)
	}
	for _, r := range stat.Unpaid {
		t.AddRow([]string{r.Name, r.HouseNumber, r.RT, "Belum bayar", "LPS, PAB"}, nil)
	}

	t.Summary = [][2]string{
		{"Pemasukan LPS", FormatMoney(stat.IncomeByCategory[reconciliation.CategoryFixedFee], currency)},
		{"Pemasukan PAB", FormatMoney(stat.IncomeByCategory[reconciliation.CategoryMetered], currency)},
		{"Total pemasukan", FormatMoney(stat.TotalIncome, currency)},
		{"Lunas / Sebagian / Belum", fmt.Sprintf("%d / %d / %d", len(stat.FullyPaid), len(stat.PartiallyPaid), len(stat.Unpaid))},
	}
	return t, nil
}

func (s *Service) financialTable(ctx context.Context, month reconciliation.Month, currency string) (*Table, error) {
	points, err := s.Trends(ctx, month, financialMonths)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []string{"No", "Bulan", "Total", "Lunas", "Pending", "Terlambat", "Pemasukan", "Kepatuhan"}}
	var payments, paid int64
	var income types.Money
	for i, p := range points {
		t.AddRow([]string{
			strconv.Itoa(i + 1),
			p.Month,
			strconv.FormatInt(p.PaymentCount(), 10),
			strconv.FormatInt(p.PaidCount(), 10),
			strconv.FormatInt(p.PendingCount, 10),
			strconv.FormatInt(p.OverdueCount, 10),
			FormatMoney(p.TotalIncome, currency),
			fmt.Sprintf("%d%%", p.ComplianceRate()),
		}, []any{
			int64(i + 1), nil,
			p.PaymentCount(), p.PaidCount(), p.PendingCount, p.OverdueCount,
			int64(p.TotalIncome), p.ComplianceRate(),
		})
		payments += p.PaymentCount()
		paid += p.PaidCount()
		income += p.TotalIncome
	}

	t.Summary = [][2]string{
		{fmt.Sprintf("Total pembayaran (%d bulan)", financialMonths), strconv.FormatInt(payments, 10)},
		{"Total lunas", strconv.FormatInt(paid, 10)},
		{"Total pemasukan", FormatMoney(income, currency)},
		{"Rata-rata kepatuhan", fmt.Sprintf("%d%%", percent(paid, payments))},
	}
	return t, nil
}

// Invoice renders one payment as an invoice document. Format defaults to PDF.
func (s *Service) Invoice(ctx context.Context, paymentID id.ID, format Format) (*Rendered, error) {
	if format == "" {
		format = FormatPDF
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, apperror.NewInvalidArgument("format", fmt.Sprintf("export format %q is not available", format))
	}

	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	r, err := s.residents.GetByID(ctx, p.ResidentID)
	if err != nil {
		return nil, err
	}
	assoc, err := s.settings.Association(ctx)
	if err != nil {
		return nil, err
	}
	billing, err := s.settings.Billing(ctx)
	if err != nil {
		return nil, err
	}

	table := invoiceTable(p, r, billing.Currency)
	table.Title = assoc.Name
	if assoc.Address != "" {
		table.Subtitle = fmt.Sprintf("Invoice %s - %s", p.Number, assoc.Address)
	} else {
		table.Subtitle = "Invoice " + p.Number
	}
	return s.render(ExportInvoice, format, renderer, table, fmt.Sprintf("invoice-%s.%s", p.Number, format))
}

func invoiceTable(p *payment.Payment, r *resident.Resident, currency string) *Table {
	t := &Table{Columns: []string{"Deskripsi", "Jumlah", "Harga", "Total"}}
	switch {
	case p.Category == reconciliation.CategoryMetered && p.UsageQuantity != nil && p.RatePerUnit != nil:
		t.AddRow([]string{
			"Air PAB " + p.Period,
			p.UsageQuantity.String() + " m3",
			FormatMoney(*p.RatePerUnit, currency),
			FormatMoney(p.Amount, currency),
		}, []any{nil, p.UsageQuantity.InexactFloat64(), int64(*p.RatePerUnit), int64(p.Amount)})
	case p.Category == reconciliation.CategoryMetered:
		t.AddRow([]string{"Air PAB " + p.Period, "-", "-", FormatMoney(p.Amount, currency)},
			[]any{nil, nil, nil, int64(p.Amount)})
	default:
		t.AddRow([]string{
			"Iuran LPS " + p.Period, "1 bulan",
			FormatMoney(p.Amount, currency), FormatMoney(p.Amount, currency),
		}, []any{nil, nil, int64(p.Amount), int64(p.Amount)})
	}

	invoiceDate := p.Date
	if invoiceDate.IsZero() && p.PaidDate != nil {
		invoiceDate = *p.PaidDate
	}
	status, method, paidDate := "Belum dibayar", "-", "-"
	if p.Status == payment.StatusPaid {
		status, method = "Lunas", "Cash"
		if p.PaymentMethod != nil && *p.PaymentMethod != "" {
			method = *p.PaymentMethod
		}
		if p.PaidDate != nil {
			paidDate = p.PaidDate.Format("2006-01-02")
		}
	} else if p.Status == payment.StatusOverdue {
		status = "Terlambat"
	}

	t.Summary = [][2]string{
		{"No. Invoice", p.Number},
		{"Tanggal Invoice", invoiceDate.Format("2006-01-02")},
		{"Jatuh Tempo", p.DueDate.Format("2006-01-02")},
		{"Warga", fmt.Sprintf("%s, RT %s, Rumah %s", r.Name, r.RT, r.HouseNumber)},
		{"Status", status},
		{"Metode Pembayaran", method},
		{"Tanggal Bayar", paidDate},
		{"Total", FormatMoney(p.Amount, currency)},
	}
	return t
}

// FormatMoney renders whole currency units with dot thousand separators: "IDR 62.500".
func FormatMoney(m types.Money, currency string) string {
	neg := m < 0
	if neg {
		m = -m
	}
	digits := strconv.FormatInt(int64(m), 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}
