// Package document_repo provides PostgreSQL implementations of document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"rwpay/internal/infrastructure/storage/postgres"
	"rwpay/internal/infrastructure/storage/postgres/catalog_repo"
)

// BaseDocumentRepo adds numbered-document queries and bulk inserts to the
// catalog base.
type BaseDocumentRepo[T any] struct {
	*catalog_repo.BaseCatalogRepo[T]
	columns  []string
	inserter *postgres.BatchInserter
}

func NewBaseDocumentRepo[T any](txm *postgres.TxManager, cfg catalog_repo.BaseConfig[T]) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		BaseCatalogRepo: catalog_repo.NewBaseCatalogRepo(txm, cfg),
		columns:         cfg.SelectCols,
		inserter:        postgres.NewBatchInserter(txm),
	}
}

// GetByNumber finds a live document by its number.
func (r *BaseDocumentRepo[T]) GetByNumber(ctx context.Context, number string) (T, error) {
	q := r.Select().
		Where(squirrel.Eq{"number": number, "deletion_mark": false}).
		Limit(1)
	return r.FindOne(ctx, q, number)
}

// CreateBatch inserts all documents with a single COPY.
func (r *BaseDocumentRepo[T]) CreateBatch(ctx context.Context, docs []T) (int64, error) {
	maps := make([]map[string]any, len(docs))
	for i, d := range docs {
		maps[i] = postgres.StructToMap(d)
	}
	n, err := r.inserter.CopyFromSlice(ctx, r.TableName(), r.columns, postgres.RowsFromMaps(r.columns, maps))
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", r.TableName(), err)
	}
	return n, nil
}
