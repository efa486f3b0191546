package entity

import (
	"time"
)

// Document is the base for dated, numbered records such as payments and invoices.
type Document struct {
	BaseEntity
	Audit

	// Number is assigned by the numerator when the document is first saved.
	Number string `db:"number" json:"number"`

	// Date is the business date (invoice date for payments).
	Date time.Time `db:"date" json:"date"`
}

func NewDocument(date time.Time) Document {
	return Document{
		BaseEntity: NewBaseEntity(),
		Audit:      NewAudit(),
		Date:       date,
	}
}
