package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/tx"
	"rwpay/internal/core/types"
)

type memRepo struct {
	items map[string]Setting
}

func (m *memRepo) List(context.Context) ([]Setting, error) {
	out := make([]Setting, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, key string) (*Setting, error) {
	it, ok := m.items[key]
	if !ok {
		return nil, apperror.NewNotFound("setting", key)
	}
	return &it, nil
}

func (m *memRepo) Upsert(_ context.Context, items []Setting) error {
	for _, it := range items {
		m.items[it.Key] = it
	}
	return nil
}

func (m *memRepo) Delete(_ context.Context, key string) error {
	if _, ok := m.items[key]; !ok {
		return apperror.NewNotFound("setting", key)
	}
	delete(m.items, key)
	return nil
}

type countingCache struct {
	repo        *memRepo
	invalidated int
}

func (c *countingCache) Snapshot(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range c.repo.items {
		out[k] = v.Value
	}
	return out, nil
}

func (c *countingCache) Invalidate() { c.invalidated++ }

func newTestService() (*Service, *memRepo, *countingCache) {
	repo := &memRepo{items: map[string]Setting{}}
	cache := &countingCache{repo: repo}
	svc := NewService(ServiceConfig{
		Repo:      repo,
		TxManager: tx.Noop{},
		Cache:     cache,
		CheckExpr: func(expr string) error {
			if expr == "broken(" {
				return errors.New("syntax error")
			}
			return nil
		},
	})
	return svc, repo, cache
}

func TestService_DefaultsApply(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	billing, err := svc.Billing(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Money(50000), billing.MonthlyFee)
	assert.Equal(t, types.Money(5000), billing.PABRate)
	assert.Equal(t, 10, billing.DueDay)
	assert.Equal(t, "IDR", billing.Currency)

	assoc, err := svc.Association(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RW 08 Sambiroto", assoc.Name)

	notif, err := svc.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, notif.ReminderDays)
	assert.False(t, notif.EmailReminders)
}

func TestService_UpsertManyAndInvalidate(t *testing.T) {
	svc, repo, cache := newTestService()
	ctx := context.Background()

	err := svc.UpsertMany(ctx, map[string]string{
		KeyMonthlyFee: "75000",
		KeyRWName:     "RW 09",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.Equal(t, "75000", repo.items[KeyMonthlyFee].Value)

	billing, err := svc.Billing(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Money(75000), billing.MonthlyFee)
}

func TestService_UpsertRejectsInvalidValues(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	tests := map[string]string{
		KeyMonthlyFee:          "-1",
		KeyDueDay:              "31",
		KeyEmailReminders:      "maybe",
		KeyCurrency:            "rupiah",
		KeyRWEmail:             "not-an-email",
		KeySatisfiedExpression: "broken(",
	}
	for key, value := range tests {
		err := svc.Upsert(ctx, key, value)
		require.Error(t, err, key)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code, key)
	}
	assert.Empty(t, repo.items)

	// One bad value rejects the whole batch.
	err := svc.UpsertMany(ctx, map[string]string{KeyPABRate: "6000", KeyDueDay: "0"})
	require.Error(t, err)
	assert.Empty(t, repo.items)
}

func TestService_GetAndDelete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	got, err := svc.Get(ctx, KeyPABRate)
	require.NoError(t, err)
	assert.Equal(t, "5000", got.Value)

	_, err = svc.Get(ctx, "unknown_key")
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.Upsert(ctx, KeyPABRate, "6000"))
	require.NoError(t, svc.Delete(ctx, KeyPABRate))

	got, err = svc.Get(ctx, KeyPABRate)
	require.NoError(t, err)
	assert.Equal(t, "5000", got.Value, "deleted keys fall back to defaults")

	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, KeyPABRate)))
}

func TestValues_MalformedFallsBack(t *testing.T) {
	v := Values{KeyMonthlyFee: "abc", KeyEmailReminders: "yes"}
	assert.Equal(t, 50000, v.Int(KeyMonthlyFee))
	assert.False(t, v.Bool(KeyEmailReminders))
}

func TestService_ListIncludesDefaults(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Upsert(ctx, "custom_note", "hello"))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(Defaults)+1)
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1].Key, items[i].Key)
	}
}
