package dto

// MonthQuery selects a reporting month; empty means the current month.
type MonthQuery struct {
	Month string `form:"month" binding:"omitempty,yearmonth"`
}

// TrendsQuery selects the last Months months ending at To.
type TrendsQuery struct {
	To     string `form:"to" binding:"omitempty,yearmonth"`
	Months int    `form:"months" binding:"omitempty,min=1,max=36"`
}

// ExportQuery selects the export format and month.
type ExportQuery struct {
	Format string `form:"format"`
	Month  string `form:"month" binding:"omitempty,yearmonth"`
}

// InvoiceQuery selects the invoice format.
type InvoiceQuery struct {
	Format string `form:"format"`
}

// HistoryQuery limits activity log listings.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}
