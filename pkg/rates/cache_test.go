package rates

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	calls atomic.Int32
	table map[string]float64
	err   error
}

func (f *fakeFeed) Fetch(_ context.Context, _ string) (map[string]float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

type fakeSnapshots struct {
	mu     sync.Mutex
	tables map[string]Table
	ttls   map[string]time.Duration
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{tables: map[string]Table{}, ttls: map[string]time.Duration{}}
}

func (s *fakeSnapshots) Load(_ context.Context, endpoint string) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[endpoint]
	return table, ok
}

func (s *fakeSnapshots) Save(_ context.Context, endpoint string, table Table, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[endpoint] = table
	s.ttls[endpoint] = ttl
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func TestNextCutoff(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before cutoff", time.Date(2024, 3, 6, 6, 59, 0, 0, time.UTC), time.Date(2024, 3, 6, 7, 0, 0, 0, time.UTC)},
		{"at cutoff", time.Date(2024, 3, 6, 7, 0, 0, 0, time.UTC), time.Date(2024, 3, 7, 7, 0, 0, 0, time.UTC)},
		{"evening", time.Date(2024, 3, 6, 23, 30, 0, 0, time.UTC), time.Date(2024, 3, 7, 7, 0, 0, 0, time.UTC)},
		{"month end", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)},
		{"other zone", time.Date(2024, 3, 6, 8, 0, 0, 0, time.FixedZone("CET", 3600)), time.Date(2024, 3, 7, 7, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextCutoff(tt.now)), "got %s", NextCutoff(tt.now))
		})
	}
}

func TestInvert(t *testing.T) {
	table := Invert(map[string]float64{
		"USD":  1.25,
		"jpy":  160,
		"tiny": 0.00000005,
		"neg":  -0.00000001,
		"zero": 0,
	})
	assert.Equal(t, Table{"usd": 0.8, "jpy": 1.0 / 160}, table)
}

func TestCacheServesUntilCutoff(t *testing.T) {
	feed := &fakeFeed{table: map[string]float64{"usd": 1.25}}
	c := &clock{now: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(feed, WithClock(c.Now))

	rate, ok := cache.Rate(context.Background(), "USD", "EUR")
	require.True(t, ok)
	assert.InDelta(t, 0.8, rate, 1e-12)

	c.now = time.Date(2024, 3, 7, 6, 59, 0, 0, time.UTC)
	_, ok = cache.Rate(context.Background(), "usd", "eur")
	assert.True(t, ok)
	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestCacheRefreshesStaleEntry(t *testing.T) {
	feed := &fakeFeed{table: map[string]float64{"usd": 1.25}}
	c := &clock{now: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(feed, WithClock(c.Now))
	cache.Rates(context.Background(), "eur")
	require.EqualValues(t, 1, feed.calls.Load())

	feed.table = map[string]float64{"usd": 2}
	c.now = time.Date(2024, 3, 7, 7, 0, 0, 0, time.UTC)

	rate, ok := cache.Rate(context.Background(), "usd", "eur")
	require.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-12)
	assert.EqualValues(t, 2, feed.calls.Load())
}

func TestCacheKeepsEndpointsApart(t *testing.T) {
	feed := &fakeFeed{table: map[string]float64{"usd": 1.25}}
	cache := NewCache(feed)

	cache.Rates(context.Background(), "eur")
	cache.Rates(context.Background(), "gbp")
	cache.Rates(context.Background(), "eur")
	assert.EqualValues(t, 2, feed.calls.Load())
}

func TestCacheFetchFailure(t *testing.T) {
	feed := &fakeFeed{err: errors.New("feed down")}
	cache := NewCache(feed)

	assert.Empty(t, cache.Rates(context.Background(), "eur"))
	_, ok := cache.Rate(context.Background(), "usd", "eur")
	assert.False(t, ok)
	assert.EqualValues(t, 2, feed.calls.Load(), "failures must not be cached")
}

// blockingFeed holds every fetch until release is closed.
type blockingFeed struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingFeed() *blockingFeed {
	return &blockingFeed{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (f *blockingFeed) Fetch(ctx context.Context, _ string) (map[string]float64, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]float64{"usd": 1.25}, nil
}

func TestCacheConcurrentMiss(t *testing.T) {
	feed := newBlockingFeed()
	cache := NewCache(feed)

	var ready, done sync.WaitGroup
	for range 16 {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			_, ok := cache.Rate(context.Background(), "usd", "eur")
			assert.True(t, ok)
		}()
	}
	ready.Wait()
	<-feed.started
	// let every goroutine park on the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(feed.release)
	done.Wait()
	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestCacheRefreshOutlivesCaller(t *testing.T) {
	feed := newBlockingFeed()
	cache := NewCache(feed)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan bool, 1)
	go func() {
		_, ok := cache.Rate(ctx, "usd", "eur")
		first <- ok
	}()
	<-feed.started

	second := make(chan bool, 1)
	go func() {
		_, ok := cache.Rate(context.Background(), "usd", "eur")
		second <- ok
	}()
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(feed.release)

	assert.True(t, <-first)
	assert.True(t, <-second)
	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestCacheSnapshots(t *testing.T) {
	c := &clock{now: time.Date(2024, 3, 6, 5, 0, 0, 0, time.UTC)}
	snapshots := newFakeSnapshots()
	feed := &fakeFeed{table: map[string]float64{"usd": 1.25}}

	first := NewCache(feed, WithSnapshots(snapshots), WithClock(c.Now))
	first.Rates(context.Background(), "eur")
	require.EqualValues(t, 1, feed.calls.Load())
	assert.Equal(t, 2*time.Hour, snapshots.ttls["eur"])

	second := NewCache(feed, WithSnapshots(snapshots), WithClock(c.Now))
	rate, ok := second.Rate(context.Background(), "usd", "eur")
	require.True(t, ok)
	assert.InDelta(t, 0.8, rate, 1e-12)
	assert.EqualValues(t, 1, feed.calls.Load(), "second cache must reuse the snapshot")
}
