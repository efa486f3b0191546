package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowsFromMaps(t *testing.T) {
	cols := []string{"id", "name", "missing"}
	rows := RowsFromMaps(cols, []map[string]any{
		{"id": 1, "name": "a", "extra": true},
		{"name": "b"},
	})

	assert.Equal(t, [][]any{
		{1, "a", nil},
		{nil, "b", nil},
	}, rows)
}
