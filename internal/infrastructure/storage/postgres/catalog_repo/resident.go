package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/infrastructure/storage/postgres"
)

type ResidentRepo struct {
	*BaseCatalogRepo[*resident.Resident]
}

var _ resident.Repository = (*ResidentRepo)(nil)

func NewResidentRepo(txm *postgres.TxManager) *ResidentRepo {
	return &ResidentRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, BaseConfig[*resident.Resident]{
			TableName:    "residents",
			SelectCols:   postgres.ExtractDBColumns[resident.Resident](),
			SearchCols:   []string{"name", "house_number", "phone"},
			DefaultOrder: "house_number ASC",
			New:          func() *resident.Resident { return &resident.Resident{} },
		}),
	}
}

func (r *ResidentRepo) FindByHouseNumber(ctx context.Context, houseNumber string) (*resident.Resident, error) {
	q := r.Select().
		Where(squirrel.Eq{"house_number": houseNumber, "deletion_mark": false}).
		Limit(1)
	return r.FindOne(ctx, q, houseNumber)
}

func (r *ResidentRepo) ListActive(ctx context.Context) ([]*resident.Resident, error) {
	q := r.Select().
		Where(squirrel.Eq{"status": resident.StatusActive, "deletion_mark": false}).
		OrderBy("house_number ASC")
	return r.FindMany(ctx, q)
}

func (r *ResidentRepo) CountByStatus(ctx context.Context) (map[resident.Status]int64, error) {
	sql, args, err := r.Builder().
		Select("status", "COUNT(*)").
		From(r.TableName()).
		Where(squirrel.Eq{"deletion_mark": false}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count residents: %w", err)
	}
	defer rows.Close()

	out := make(map[resident.Status]int64)
	for rows.Next() {
		var status resident.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
