package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsCache_LoadsOnceUntilInvalidated(t *testing.T) {
	calls := 0
	stored := map[string]string{"billing.monthly_fee": "50000"}
	c := NewSettingsCache(nil, "settings_changed", func(context.Context) (map[string]string, error) {
		calls++
		return map[string]string{"billing.monthly_fee": stored["billing.monthly_fee"]}, nil
	})

	v, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "50000", v["billing.monthly_fee"])

	_, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	stored["billing.monthly_fee"] = "60000"
	c.Invalidate()

	v, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "60000", v["billing.monthly_fee"])
	assert.Equal(t, 2, calls)
}

func TestSettingsCache_SnapshotIsCopy(t *testing.T) {
	c := NewSettingsCache(nil, "settings_changed", func(context.Context) (map[string]string, error) {
		return map[string]string{"k": "v"}, nil
	})

	v, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	v["k"] = "mutated"

	again, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", again["k"])
}

func TestSettingsCache_LoadError(t *testing.T) {
	c := NewSettingsCache(nil, "settings_changed", func(context.Context) (map[string]string, error) {
		return nil, errors.New("boom")
	})

	_, err := c.Snapshot(context.Background())
	require.Error(t, err)

	c.Start(context.Background())
	c.Stop()
}

func TestSettingsCache_ListenersSurvivePanics(t *testing.T) {
	c := NewSettingsCache(nil, "settings_changed", func(context.Context) (map[string]string, error) {
		return map[string]string{}, nil
	})

	var calls []string
	c.OnChange(func(context.Context) { calls = append(calls, "first") })
	c.OnChange(func(context.Context) { panic("listener bug") })
	c.OnChange(func(context.Context) { calls = append(calls, "third") })

	assert.NotPanics(t, func() { c.notifyListeners(context.Background()) })
	assert.Equal(t, []string{"first", "third"}, calls)
}
