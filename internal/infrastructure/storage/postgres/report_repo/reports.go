// Package report_repo runs the aggregate queries behind the reports service.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rwpay/internal/domain/documents/payment"
	"rwpay/internal/domain/reports"
	"rwpay/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// IncomeQuery builds the paid-income aggregate for periods in [from, to].
func (r *ReportRepo) IncomeQuery(from, to string) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"period",
			"category",
			"COALESCE(SUM(amount), 0)::bigint AS amount",
			"COUNT(*) AS paid_count",
		).
		From("payments").
		Where(squirrel.Eq{"status": payment.StatusPaid, "deletion_mark": false}).
		Where(squirrel.GtOrEq{"period": from}).
		Where(squirrel.LtOrEq{"period": to}).
		GroupBy("period", "category").
		OrderBy("period", "category")
}

func (r *ReportRepo) IncomeByPeriod(ctx context.Context, from, to string) ([]reports.PeriodIncome, error) {
	sql, args, err := r.IncomeQuery(from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build income query: %w", err)
	}

	var rows []reports.PeriodIncome
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("income by period: %w", err)
	}
	return rows, nil
}

// StatusCountQuery builds the per-status payment count for periods in [from, to].
func (r *ReportRepo) StatusCountQuery(from, to string) squirrel.SelectBuilder {
	return r.builder.
		Select("period", "status", "COUNT(*) AS count").
		From("payments").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.GtOrEq{"period": from}).
		Where(squirrel.LtOrEq{"period": to}).
		GroupBy("period", "status").
		OrderBy("period", "status")
}

func (r *ReportRepo) StatusCountsByPeriod(ctx context.Context, from, to string) ([]reports.PeriodStatusCount, error) {
	sql, args, err := r.StatusCountQuery(from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status count query: %w", err)
	}

	var rows []reports.PeriodStatusCount
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("status counts by period: %w", err)
	}
	return rows, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
