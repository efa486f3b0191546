package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/domain/documents/payment"
)

func TestExtractDBColumns_Resident(t *testing.T) {
	cols := ExtractDBColumns[resident.Resident]()

	for _, expected := range []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"name", "house_number", "rt", "address", "phone", "email", "status",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.Len(t, cols, 14)
}

func TestExtractDBColumns_PaymentIncludesDocumentFields(t *testing.T) {
	cols := ExtractDBColumns[payment.Payment]()
	assert.Contains(t, cols, "number")
	assert.Contains(t, cols, "date")
	assert.Contains(t, cols, "period")
	assert.Contains(t, cols, "usage_quantity")
}

func TestStructToMap(t *testing.T) {
	r := resident.NewResident("Budi", "A-01", "01")

	m := StructToMap(r)
	require.NotNil(t, m)
	assert.Equal(t, r.ID, m["id"])
	assert.Equal(t, "Budi", m["name"])
	assert.Equal(t, resident.StatusActive, m["status"])
	assert.Equal(t, 1, m["version"])

	assert.Equal(t, m, StructToMap(*r), "pointer and value give the same map")
	assert.Nil(t, StructToMap((*resident.Resident)(nil)))
	assert.Nil(t, StructToMap(42))
}
