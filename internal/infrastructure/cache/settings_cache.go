// Package cache keeps settings in memory and drops them on PostgreSQL NOTIFY.
package cache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rwpay/internal/domain/settings"
	"rwpay/pkg/logger"
)

// Loader reads all stored settings.
type Loader func(ctx context.Context) (map[string]string, error)

// SettingsCache serves settings snapshots. A write in any process issues
// NOTIFY on the channel, which empties the cache in every listener.
type SettingsCache struct {
	pool    *pgxpool.Pool
	channel string
	load    Loader

	mu     sync.RWMutex
	values map[string]string
	loaded bool

	listenersMu sync.Mutex
	listeners   []func(ctx context.Context)

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

var _ settings.Snapshotter = (*SettingsCache)(nil)

// NewSettingsCache builds a cache. pool may be nil, in which case the cache
// only reacts to local Invalidate calls.
func NewSettingsCache(pool *pgxpool.Pool, channel string, load Loader) *SettingsCache {
	return &SettingsCache{pool: pool, channel: channel, load: load}
}

// LoaderFromRepo adapts a settings repository.
func LoaderFromRepo(repo settings.Repository) Loader {
	return func(ctx context.Context) (map[string]string, error) {
		items, err := repo.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(items))
		for _, it := range items {
			out[it.Key] = it.Value
		}
		return out, nil
	}
}

// Snapshot returns a copy of the stored values, loading them if needed.
func (c *SettingsCache) Snapshot(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	if c.loaded {
		out := maps.Clone(c.values)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		values, err := c.load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		c.values = values
		c.loaded = true
	}
	return maps.Clone(c.values), nil
}

func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.values = nil
	c.loaded = false
	c.mu.Unlock()
}

// OnChange registers fn to run after a change notification has emptied the cache.
// A panicking listener is logged and does not stop the others.
func (c *SettingsCache) OnChange(fn func(ctx context.Context)) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

func (c *SettingsCache) notifyListeners(ctx context.Context) {
	c.listenersMu.Lock()
	listeners := slices.Clone(c.listeners)
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "settings listener panicked", "panic", r)
				}
			}()
			fn(ctx)
		}()
	}
}

// Start runs the LISTEN loop until Stop or ctx is cancelled.
func (c *SettingsCache) Start(ctx context.Context) {
	if c.pool == nil {
		return
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.listenLoop(ctx)
	logger.Info(ctx, "settings cache started", "channel", c.channel)
}

func (c *SettingsCache) Stop() {
	c.lifecycleMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

func (c *SettingsCache) listenLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		conn, err := c.pool.Acquire(ctx)
		if err != nil {
			logger.Error(ctx, "acquire connection for LISTEN", "error", err)
			sleep(ctx, time.Second)
			continue
		}

		if _, err := conn.Exec(ctx, "LISTEN "+c.channel); err != nil {
			logger.Error(ctx, "LISTEN failed", "channel", c.channel, "error", err)
			conn.Release()
			sleep(ctx, time.Second)
			continue
		}

		// Anything written while we were not listening is unknown.
		c.Invalidate()
		c.wait(ctx, conn)
		conn.Release()
	}
}

func (c *SettingsCache) wait(ctx context.Context, conn *pgxpool.Conn) {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn(ctx, "settings listener lost connection", "error", err)
			}
			return
		}
		logger.Debug(ctx, "settings changed", "payload", n.Payload)
		c.Invalidate()
		c.notifyListeners(ctx)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
