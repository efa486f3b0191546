package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
	"rwpay/internal/domain/filter"
)

func testRepo() *BaseCatalogRepo[any] {
	return NewBaseCatalogRepo[any](nil, BaseConfig[any]{
		TableName:  "test_table",
		SelectCols: []string{"id", "col1", "name"},
		New:        func() any { return nil },
	})
}

func TestApplyAdvancedFilters_Operators(t *testing.T) {
	repo := testRepo()

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Greater",
			item:     filter.Item{Field: "col1", Operator: filter.Greater, Value: 10},
			wantSQL:  "SELECT id, col1, name FROM test_table WHERE col1 > $1",
			wantArgs: []any{10},
		},
		{
			name:     "Less",
			item:     filter.Item{Field: "col1", Operator: filter.Less, Value: 5},
			wantSQL:  "SELECT id, col1, name FROM test_table WHERE col1 < $1",
			wantArgs: []any{5},
		},
		{
			name:     "Contains",
			item:     filter.Item{Field: "name", Operator: filter.Contains, Value: "budi"},
			wantSQL:  "SELECT id, col1, name FROM test_table WHERE name ILIKE $1",
			wantArgs: []any{"%budi%"},
		},
		{
			name:     "IsNull",
			item:     filter.Item{Field: "col1", Operator: filter.IsNull},
			wantSQL:  "SELECT id, col1, name FROM test_table WHERE col1 IS NULL",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.applyAdvancedFilters(repo.Select(), []filter.Item{tt.item})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestApplyAdvancedFilters_RejectsUnknownColumn(t *testing.T) {
	repo := testRepo()
	_, err := repo.applyAdvancedFilters(repo.Select(), []filter.Item{
		{Field: "password_hash", Operator: filter.Equal, Value: "x"},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestParseOrderBy(t *testing.T) {
	repo := testRepo()

	got, err := repo.parseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, "created_at DESC", got)

	got, err = repo.parseOrderBy("-name")
	require.NoError(t, err)
	assert.Equal(t, "name DESC", got)

	got, err = repo.parseOrderBy("+col1")
	require.NoError(t, err)
	assert.Equal(t, "col1 ASC", got)

	_, err = repo.parseOrderBy("name; DROP TABLE x")
	assert.Error(t, err)
}
