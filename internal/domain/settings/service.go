package settings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rwpay/internal/core/apperror"
	appctx "rwpay/internal/core/context"
	"rwpay/internal/core/id"
	"rwpay/internal/core/tx"
	"rwpay/internal/domain/audit"
)

const tableName = "settings"

// Repository persists settings. Writes notify other processes of the change.
type Repository interface {
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, items []Setting) error
	Delete(ctx context.Context, key string) error
}

// Snapshotter serves resolved values from memory. Implemented by the settings cache.
type Snapshotter interface {
	Snapshot(ctx context.Context) (map[string]string, error)
	Invalidate()
}

// ExpressionChecker validates the satisfied-expression before it is stored.
type ExpressionChecker func(expr string) error

type Service struct {
	repo      Repository
	txManager tx.Manager
	cache     Snapshotter
	checkExpr ExpressionChecker
	activity  audit.Recorder
}

type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Cache     Snapshotter       // optional
	CheckExpr ExpressionChecker // optional
	Activity  audit.Recorder    // optional
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		cache:     cfg.Cache,
		checkExpr: cfg.CheckExpr,
		activity:  cfg.Activity,
	}
}

// Values returns stored values merged over defaults.
func (s *Service) Values(ctx context.Context) (Values, error) {
	if s.cache != nil {
		stored, err := s.cache.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return merge(stored), nil
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	stored := make(map[string]string, len(items))
	for _, it := range items {
		stored[it.Key] = it.Value
	}
	return merge(stored), nil
}

func merge(stored map[string]string) Values {
	out := make(Values, len(Defaults)+len(stored))
	for k, v := range Defaults {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out
}

// List returns every stored setting plus known keys that still use their default.
func (s *Service) List(ctx context.Context) ([]Setting, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.Key] = true
	}
	for k, v := range Defaults {
		if !seen[k] {
			items = append(items, Setting{Key: k, Value: v})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

// Get returns the stored or default value; unknown keys are NOT_FOUND.
func (s *Service) Get(ctx context.Context, key string) (*Setting, error) {
	item, err := s.repo.Get(ctx, key)
	if err == nil {
		return item, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}
	if def, ok := Defaults[key]; ok {
		return &Setting{Key: key, Value: def}, nil
	}
	return nil, apperror.NewNotFound("setting", key)
}

// Upsert stores one value.
func (s *Service) Upsert(ctx context.Context, key, value string) error {
	return s.UpsertMany(ctx, map[string]string{key: value})
}

// UpsertMany validates all values first and stores them in one transaction.
func (s *Service) UpsertMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return apperror.NewValidation("no settings to update")
	}

	var updatedBy *id.ID
	if uid, err := id.Parse(appctx.GetUserID(ctx)); err == nil {
		updatedBy = &uid
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Setting, 0, len(values))
	now := time.Now().UTC()
	for _, k := range keys {
		v := values[k]
		if err := ValidateValue(k, v); err != nil {
			return err
		}
		if k == KeySatisfiedExpression && v != "" && s.checkExpr != nil {
			if err := s.checkExpr(v); err != nil {
				return apperror.NewValidation("satisfied_expression does not compile").
					WithDetail("field", k).
					WithCause(err)
			}
		}
		items = append(items, Setting{Key: k, Value: v, UpdatedAt: now, UpdatedBy: updatedBy})
	}

	before, err := s.Values(ctx)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Upsert(ctx, items)
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	s.invalidate()

	for _, it := range items {
		prev := before.String(it.Key)
		if prev == it.Value {
			continue
		}
		audit.Log(ctx, s.activity, audit.ActionUpdate, tableName, it.Key,
			map[string]string{"value": prev}, map[string]string{"value": it.Value})
	}
	return nil
}

// Delete removes a stored value; known keys fall back to their default.
func (s *Service) Delete(ctx context.Context, key string) error {
	existing, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	s.invalidate()
	audit.Log(ctx, s.activity, audit.ActionDelete, tableName, key, existing, nil)
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

func (s *Service) Association(ctx context.Context) (Association, error) {
	v, err := s.Values(ctx)
	if err != nil {
		return Association{}, err
	}
	return v.Association(), nil
}

func (s *Service) Billing(ctx context.Context) (Billing, error) {
	v, err := s.Values(ctx)
	if err != nil {
		return Billing{}, err
	}
	return v.Billing(), nil
}

func (s *Service) Notifications(ctx context.Context) (Notifications, error) {
	v, err := s.Values(ctx)
	if err != nil {
		return Notifications{}, err
	}
	return v.Notifications(), nil
}
