package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingProvider struct {
	calls int
	err   error
}

func (m *countingProvider) Current(_ context.Context, region string) (domain.WeatherObservation, error) {
	m.calls++
	if m.err != nil {
		return domain.WeatherObservation{}, m.err
	}
	return domain.WeatherObservation{Region: region, Temperature: float64(20 + m.calls)}, nil
}

var cacheStart = time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC)

// --- CachedProvider tests ---

func TestCachedProvider_HitWithinTTL(t *testing.T) {
	inner := &countingProvider{}
	clk := clockwork.NewFakeClockAt(cacheStart)
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedProvider(inner, time.Hour, 10, clk, metrics)

	first, err := cached.Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	second, err := cached.Current(context.Background(), "karnataka")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, first, second)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.WeatherCache.WithLabelValues("miss")), 0)
}

func TestCachedProvider_ExpiresAfterTTL(t *testing.T) {
	inner := &countingProvider{}
	clk := clockwork.NewFakeClockAt(cacheStart)
	cached := NewCachedProvider(inner, time.Hour, 10, clk, observability.NewMetricsForTesting())

	_, err := cached.Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	obs, err := cached.Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.InDelta(t, 22, obs.Temperature, 0)
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	cached := NewCachedProvider(inner, time.Hour, 10, clockwork.NewFakeClockAt(cacheStart), observability.NewMetricsForTesting())

	_, err := cached.Current(context.Background(), "Karnataka")
	require.Error(t, err)

	inner.err = nil
	_, err = cached.Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_DifferentRegionsMiss(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, time.Hour, 10, clockwork.NewFakeClockAt(cacheStart), observability.NewMetricsForTesting())

	_, _ = cached.Current(context.Background(), "Karnataka")
	_, _ = cached.Current(context.Background(), "Mysuru")

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	exp := cacheStart.Add(time.Hour)

	c.put("a", domain.WeatherObservation{Region: "a"}, exp)
	c.put("b", domain.WeatherObservation{Region: "b"}, exp)
	_, ok := c.get("a", cacheStart) // a is now most recent
	require.True(t, ok)
	c.put("c", domain.WeatherObservation{Region: "c"}, exp)

	_, ok = c.get("b", cacheStart)
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.get("a", cacheStart)
	assert.True(t, ok)
	_, ok = c.get("c", cacheStart)
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateRefreshesExpiry(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", domain.WeatherObservation{Temperature: 1}, cacheStart.Add(time.Minute))
	c.put("a", domain.WeatherObservation{Temperature: 2}, cacheStart.Add(time.Hour))

	got, ok := c.get("a", cacheStart.Add(30*time.Minute))
	require.True(t, ok)
	assert.InDelta(t, 2, got.Temperature, 0)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_ExpiredEntryRemoved(t *testing.T) {
	c := newLRUCache(3)
	c.put("a", domain.WeatherObservation{}, cacheStart.Add(time.Minute))

	_, ok := c.get("a", cacheStart.Add(time.Minute))

	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

// --- Simulator ---

func TestSimulator_UsesPackageClock(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	obs, err := NewSimulator().Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	assert.Equal(t, "Karnataka", obs.Region)
	assert.Equal(t, domain.SimulatedSource, obs.Source)
	assert.Equal(t, "Monsoon (High Disease Risk)", obs.Season)
	assert.InDelta(t, 26, obs.Temperature, 1e-9)
}
