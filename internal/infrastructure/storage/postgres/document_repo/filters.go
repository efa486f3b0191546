package document_repo

import "rwpay/internal/domain/filter"

func eq(field string, v any) filter.Item {
	return filter.Item{Field: field, Operator: filter.Equal, Value: v}
}

func gte(field string, v any) filter.Item {
	return filter.Item{Field: field, Operator: filter.GreaterOrEqual, Value: v}
}

func lte(field string, v any) filter.Item {
	return filter.Item{Field: field, Operator: filter.LessOrEqual, Value: v}
}
