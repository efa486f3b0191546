// Package register_repo provides PostgreSQL implementations of register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/domain/registers/meter"
	"rwpay/internal/infrastructure/storage/postgres"
)

const meterReadingsTable = "meter_readings"

var meterColumns = []string{
	"resident_id", "period", "previous_reading", "current_reading", "usage", "recorded_at", "recorded_by",
}

type MeterRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ meter.Repository = (*MeterRepo)(nil)

func NewMeterRepo(txm *postgres.TxManager) *MeterRepo {
	return &MeterRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert keeps one reading per (resident, period); a later entry replaces the earlier one.
func (r *MeterRepo) Upsert(ctx context.Context, m *meter.Reading) error {
	sql, args, err := r.builder.Insert(meterReadingsTable).
		Columns(meterColumns...).
		Values(m.ResidentID, m.Period, m.PreviousReading, m.CurrentReading, m.Usage, m.RecordedAt, m.RecordedBy).
		Suffix(`ON CONFLICT (resident_id, period) DO UPDATE SET
			previous_reading = EXCLUDED.previous_reading,
			current_reading = EXCLUDED.current_reading,
			usage = EXCLUDED.usage,
			recorded_at = EXCLUDED.recorded_at,
			recorded_by = EXCLUDED.recorded_by`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert meter reading: %w", err)
	}
	return nil
}

func (r *MeterRepo) Get(ctx context.Context, residentID id.ID, period string) (*meter.Reading, error) {
	sql, args, err := r.builder.Select(meterColumns...).
		From(meterReadingsTable).
		Where(squirrel.Eq{"resident_id": residentID, "period": period}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out meter.Reading
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("meter_reading", residentID.String()+"/"+period)
		}
		return nil, fmt.Errorf("get meter reading: %w", err)
	}
	return &out, nil
}

func (r *MeterRepo) ListByPeriod(ctx context.Context, period string) ([]*meter.Reading, error) {
	sql, args, err := r.builder.Select(meterColumns...).
		From(meterReadingsTable).
		Where(squirrel.Eq{"period": period}).
		OrderBy("resident_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*meter.Reading
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list meter readings: %w", err)
	}
	return out, nil
}
