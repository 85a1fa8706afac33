package rates

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSource = "eur"

	// rates at or below this magnitude would blow up when inverted
	minRate    = 0.00000005
	cutoffHour = 7
)

// Table maps lowercase currency codes to the amount of the source currency one unit buys.
type Table map[string]float64

type entry struct {
	table   Table
	expires time.Time
}

// Cache keeps one inverted rate table per endpoint until the next daily cutover.
type Cache struct {
	feed      Feed
	snapshots Snapshots
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

type Option func(c *Cache)

// WithSnapshots adds a shared second tier consulted before the feed.
func WithSnapshots(s Snapshots) Option {
	return func(c *Cache) {
		c.snapshots = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(feed Feed, opts ...Option) *Cache {
	c := &Cache{
		feed:    feed,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate returns the amount of source one unit of code is worth.
func (c *Cache) Rate(ctx context.Context, code string, source string) (float64, bool) {
	table := c.Rates(ctx, strings.ToLower(source))
	rate, ok := table[strings.ToLower(code)]
	return rate, ok
}

// Rates returns the table for endpoint, refreshing it first when stale or missing.
// A failed refresh yields an empty table.
func (c *Cache) Rates(ctx context.Context, endpoint string) Table {
	c.mu.RLock()
	e, ok := c.entries[endpoint]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		return e.table
	}
	table, err := c.Refresh(ctx, endpoint)
	if err != nil {
		slog.Error("rates: error while refreshing rates", slog.String("rates.endpoint", endpoint), tint.Err(err))
		return Table{}
	}
	return table
}

// Refresh loads a fresh table for endpoint. Concurrent refreshes of the same
// endpoint share a single fetch.
func (c *Cache) Refresh(ctx context.Context, endpoint string) (Table, error) {
	// the shared fetch outlives any single caller
	ctx = context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(endpoint, func() (any, error) {
		now := c.now()
		expires := NextCutoff(now)
		if c.snapshots != nil {
			if table, ok := c.snapshots.Load(ctx, endpoint); ok {
				c.store(endpoint, table, expires)
				return table, nil
			}
		}
		raw, err := c.feed.Fetch(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		table := Invert(raw)
		c.store(endpoint, table, expires)
		if c.snapshots != nil {
			c.snapshots.Save(ctx, endpoint, table, expires.Sub(now))
		}
		slog.Info("rates: refreshed rates", slog.String("rates.endpoint", endpoint), slog.Int("rates.count", len(table)), slog.Time("rates.expires", expires))
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Table), nil
}

func (c *Cache) store(endpoint string, table Table, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[endpoint] = entry{table: table, expires: expires}
}

// Invert turns "code per source" rates into "source per code" rates.
func Invert(raw map[string]float64) Table {
	table := make(Table, len(raw))
	for code, rate := range raw {
		if math.Abs(rate) <= minRate || math.IsNaN(rate) {
			continue
		}
		table[strings.ToLower(code)] = 1.0 / rate
	}
	return table
}

// NextCutoff returns the next 07:00 UTC after now: today when now is before
// 07:00 UTC, otherwise tomorrow.
func NextCutoff(now time.Time) time.Time {
	now = now.UTC()
	day := now.Day()
	if now.Hour() >= cutoffHour {
		day++
	}
	return time.Date(now.Year(), now.Month(), day, cutoffHour, 0, 0, 0, time.UTC)
}
