package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"rwpay/internal/core/id"
	"rwpay/internal/domain"
	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/infrastructure/storage/postgres"
	"rwpay/internal/infrastructure/storage/postgres/catalog_repo"
)

type PaymentRepo struct {
	*BaseDocumentRepo[*payment.Payment]
}

var _ payment.Repository = (*PaymentRepo)(nil)

func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txm, catalog_repo.BaseConfig[*payment.Payment]{
			TableName:    "payments",
			SelectCols:   postgres.ExtractDBColumns[payment.Payment](),
			SearchCols:   []string{"number", "notes"},
			DefaultOrder: "due_date DESC",
			New:          func() *payment.Payment { return &payment.Payment{} },
		}),
	}
}

func (r *PaymentRepo) live() squirrel.SelectBuilder {
	return r.Select().Where(squirrel.Eq{"deletion_mark": false})
}

func (r *PaymentRepo) List(ctx context.Context, f payment.ListFilter) (domain.ListResult[*payment.Payment], error) {
	base := domain.ListFilter{
		Search:  f.Search,
		OrderBy: f.OrderBy,
		Limit:   f.Limit,
		Offset:  f.Offset,
	}
	if f.ResidentID != nil {
		base.AdvancedFilters = append(base.AdvancedFilters, eq("resident_id", *f.ResidentID))
	}
	if f.Category != nil {
		base.AdvancedFilters = append(base.AdvancedFilters, eq("category", string(*f.Category)))
	}
	if f.Status != nil {
		base.AdvancedFilters = append(base.AdvancedFilters, eq("status", string(*f.Status)))
	}
	if f.Period != "" {
		base.AdvancedFilters = append(base.AdvancedFilters, eq("period", f.Period))
	}
	if f.DueFrom != nil {
		base.AdvancedFilters = append(base.AdvancedFilters, gte("due_date", *f.DueFrom))
	}
	if f.DueTo != nil {
		base.AdvancedFilters = append(base.AdvancedFilters, lte("due_date", *f.DueTo))
	}
	return r.BaseDocumentRepo.List(ctx, base)
}

func (r *PaymentRepo) FindForPeriod(ctx context.Context, residentID id.ID, category payment.Category, period string) (*payment.Payment, error) {
	q := r.live().
		Where(squirrel.Eq{"resident_id": residentID, "category": category, "period": period}).
		Limit(1).
		Suffix("FOR UPDATE")
	return r.FindOne(ctx, q, fmt.Sprintf("%s/%s/%s", residentID, category, period))
}

func (r *PaymentRepo) ListByPeriod(ctx context.Context, period string) ([]*payment.Payment, error) {
	return r.FindMany(ctx, r.live().Where(squirrel.Eq{"period": period}).OrderBy("due_date", "id"))
}

func (r *PaymentRepo) ListPaid(ctx context.Context, from, to time.Time) ([]*payment.Payment, error) {
	q := r.live().
		Where(squirrel.Eq{"status": payment.StatusPaid}).
		Where(squirrel.GtOrEq{"due_date": from}).
		Where(squirrel.LtOrEq{"due_date": to}).
		OrderBy("due_date", "id")
	return r.FindMany(ctx, q)
}

func (r *PaymentRepo) ListOpen(ctx context.Context, from, to time.Time) ([]*payment.Payment, error) {
	q := r.live().
		Where(squirrel.Eq{"status": []payment.Status{payment.StatusPending, payment.StatusOverdue}}).
		Where(squirrel.GtOrEq{"due_date": from}).
		Where(squirrel.LtOrEq{"due_date": to}).
		OrderBy("due_date", "id")
	return r.FindMany(ctx, q)
}

func (r *PaymentRepo) ListPendingDueBefore(ctx context.Context, day time.Time) ([]*payment.Payment, error) {
	q := r.live().
		Where(squirrel.Eq{"status": payment.StatusPending}).
		Where(squirrel.Lt{"due_date": day}).
		OrderBy("due_date", "id").
		Suffix("FOR UPDATE SKIP LOCKED")
	return r.FindMany(ctx, q)
}
