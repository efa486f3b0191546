package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rwpay/internal/core/apperror"
	"rwpay/internal/domain/settings"
)

// SettingsChannel is the NOTIFY channel raised on every settings write.
const SettingsChannel = "settings_changed"

const settingsTable = "settings"

var settingsColumns = []string{"key", "value", "description", "updated_at", "updated_by"}

type SettingsRepo struct {
	txm     *TxManager
	batch   *BatchExecutor
	builder squirrel.StatementBuilderType
}

var _ settings.Repository = (*SettingsRepo)(nil)

func NewSettingsRepo(txm *TxManager) *SettingsRepo {
	return &SettingsRepo{
		txm:     txm,
		batch:   NewBatchExecutor(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *SettingsRepo) List(ctx context.Context) ([]settings.Setting, error) {
	sql, args, err := r.builder.Select(settingsColumns...).From(settingsTable).OrderBy("key").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []settings.Setting
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}

func (r *SettingsRepo) Get(ctx context.Context, key string) (*settings.Setting, error) {
	sql, args, err := r.builder.Select(settingsColumns...).From(settingsTable).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out settings.Setting
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("setting", key)
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &out, nil
}

// Upsert writes all items in one round trip and notifies listeners on commit.
func (r *SettingsRepo) Upsert(ctx context.Context, items []settings.Setting) error {
	queries := make([]BatchQuery, 0, len(items)+1)
	for _, it := range items {
		sql, args, err := r.builder.Insert(settingsTable).
			Columns("key", "value", "updated_at", "updated_by").
			Values(it.Key, it.Value, it.UpdatedAt, it.UpdatedBy).
			Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by").
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		queries = append(queries, BatchQuery{SQL: sql, Args: args})
	}
	queries = append(queries, BatchQuery{SQL: "SELECT pg_notify($1, '')", Args: []any{SettingsChannel}})

	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	q := r.txm.GetQuerier(ctx)
	tag, err := q.Exec(ctx, "DELETE FROM settings WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("setting", key)
	}
	if _, err := q.Exec(ctx, "SELECT pg_notify($1, '')", SettingsChannel); err != nil {
		return fmt.Errorf("notify settings change: %w", err)
	}
	return nil
}
