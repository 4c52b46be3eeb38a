package alerting_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/alerting"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type scriptedWeather struct {
	mu    sync.Mutex
	errs  []error
	calls int
	obs   domain.WeatherObservation
}

func (s *scriptedWeather) Current(_ context.Context, region string) (domain.WeatherObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return domain.WeatherObservation{}, err
	}
	obs := s.obs
	obs.Region = region
	return obs, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]domain.Event
	err     error
}

func (r *recordingPublisher) Publish(_ context.Context, events ...domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, events)
	return nil
}

func (r *recordingPublisher) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// Alpha carries one disease that turns Critical under humid July weather and
// one that stays Low; Beta's only disease is Low tier and never escalates.
func testRiskModel() *domain.RiskModel {
	return domain.NewRiskModel([]domain.DiseaseProfile{
		{Name: "Hot Blight", OptimalTemp: domain.TempRange{Min: 20, Max: 30}, HumidityThreshold: 80, RainfallSensitive: true, BaseTier: domain.TierHigh, PeakMonths: []time.Month{time.July}},
		{Name: "Cold Rust", OptimalTemp: domain.TempRange{Min: 0, Max: 5}, HumidityThreshold: 99, BaseTier: domain.TierModerate, PeakMonths: []time.Month{time.January}},
		{Name: "Mild Spot", OptimalTemp: domain.TempRange{Min: 20, Max: 30}, HumidityThreshold: 50, RainfallSensitive: true, BaseTier: domain.TierLow, PeakMonths: []time.Month{time.July}},
	}, map[string][]string{
		"Alpha": {"Hot Blight", "Cold Rust"},
		"Beta":  {"Mild Spot"},
	})
}

var humidJuly = domain.WeatherObservation{Temperature: 25, Humidity: 90, Rainfall: 10, WindSpeed: 5}

func setup(t *testing.T, weather domain.WeatherProvider, pub domain.EventPublisher, minLevel domain.RiskLevel) (*alerting.Sweeper, *clockwork.FakeClock, *observability.Metrics) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Date(2024, time.July, 15, 6, 0, 0, 0, time.UTC))
	domain.SetClock(clk)
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	s := alerting.New(testRiskModel(), weather, pub, alerting.Settings{
		Region:   "Karnataka",
		MinLevel: minLevel,
		Interval: time.Hour,
	}, clk, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	return s, clk, metrics
}

// --- tests ---

func TestSweep_PublishesAlertsAtOrAboveMinimum(t *testing.T) {
	pub := &recordingPublisher{}
	s, _, metrics := setup(t, &scriptedWeather{obs: humidJuly}, pub, domain.RiskHigh)

	sum, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Crops)
	require.Len(t, sum.Alerts, 1)
	a := sum.Alerts[0]
	assert.Equal(t, "Alpha", a.Crop)
	assert.Equal(t, "Hot Blight", a.Disease)
	assert.Equal(t, domain.RiskCritical, a.Level)
	assert.Equal(t, 95, a.Score)
	assert.Equal(t, "Karnataka", a.Region)

	require.Equal(t, 1, pub.batchCount())
	ev := pub.batches[0][0]
	assert.Equal(t, domain.EventRiskAlert, ev.Type)
	assert.Equal(t, "Alpha", ev.Key)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, a, ev.Payload)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RiskAssessments.WithLabelValues("Critical")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RiskAssessments.WithLabelValues("Low")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("risk.alert", "success")), 0)
}

func TestSweep_NoAlertsPublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	calm := domain.WeatherObservation{Temperature: 40, Humidity: 20}
	s, _, _ := setup(t, &scriptedWeather{obs: calm}, pub, domain.RiskCritical)

	sum, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, sum.Alerts)
	assert.Empty(t, sum.Alerts)
	assert.Zero(t, pub.batchCount())
	require.NoError(t, s.CheckReadiness(context.Background()))
}

func TestSweep_WithoutPublisherKeepsSummary(t *testing.T) {
	s, _, _ := setup(t, &scriptedWeather{obs: humidJuly}, nil, domain.RiskHigh)

	_, ok := s.Latest()
	assert.False(t, ok)

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Len(t, latest.Alerts, 1)
	assert.Equal(t, "High", latest.MinLevel)
}

func TestSweep_Failures(t *testing.T) {
	t.Run("weather", func(t *testing.T) {
		s, _, _ := setup(t, &scriptedWeather{errs: []error{errors.New("provider down")}}, nil, domain.RiskHigh)

		_, err := s.Sweep(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch weather")
		assert.Error(t, s.CheckReadiness(context.Background()))
	})

	t.Run("publish", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		s, _, _ := setup(t, &scriptedWeather{obs: humidJuly}, pub, domain.RiskHigh)

		_, err := s.Sweep(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "publish alerts")
		_, ok := s.Latest()
		assert.False(t, ok)
	})
}

func TestRun_RetriesThenSweepsEachInterval(t *testing.T) {
	weather := &scriptedWeather{obs: humidJuly, errs: []error{errors.New("timeout")}}
	pub := &recordingPublisher{}
	s, clk, metrics := setup(t, weather, pub, domain.RiskHigh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// First sweep fails and waits out the initial backoff.
	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	assert.Error(t, s.CheckReadiness(ctx))
	clk.Advance(200 * time.Millisecond)

	// Retry succeeds and waits for the next interval.
	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	require.NoError(t, s.CheckReadiness(ctx))
	assert.Equal(t, 1, pub.batchCount())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SweepErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SweepRunning), 0)

	clk.Advance(time.Hour)
	require.Eventually(t, func() bool { return pub.batchCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.SweepRunning), 0)
}

func TestRun_ContextCancelled(t *testing.T) {
	s, _, _ := setup(t, &scriptedWeather{obs: humidJuly}, nil, domain.RiskHigh)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
	assert.Error(t, s.CheckReadiness(context.Background()))
}
