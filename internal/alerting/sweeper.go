// Package alerting periodically scores every monitored crop against current
// weather and publishes an alert for each disease at or above a minimum risk
// level.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Alert is the payload of a risk.alert event.
type Alert struct {
	Crop                string                    `json:"crop"`
	Region              string                    `json:"region"`
	Disease             string                    `json:"disease"`
	Level               domain.RiskLevel          `json:"risk_level"`
	Score               int                       `json:"risk_score"`
	ContributingFactors []string                  `json:"contributing_factors"`
	Advisory            string                    `json:"advisory"`
	Weather             domain.WeatherObservation `json:"weather"`
}

// Summary is the outcome of one sweep.
type Summary struct {
	SweptAt  time.Time `json:"swept_at"`
	Region   string    `json:"region"`
	MinLevel string    `json:"min_level"`
	Crops    int       `json:"crops"`
	Alerts   []Alert   `json:"alerts"`
}

// Settings controls what a sweep covers and how often it runs.
type Settings struct {
	Region   string
	MinLevel domain.RiskLevel
	Interval time.Duration
}

// Sweeper runs the periodic risk sweep.
type Sweeper struct {
	risks     *domain.RiskModel
	weather   domain.WeatherProvider
	publisher domain.EventPublisher
	region    string
	minLevel  domain.RiskLevel
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready atomic.Bool
	mu    sync.RWMutex
	last  Summary
}

// New creates a Sweeper. A nil publisher keeps alerts in the latest summary
// only.
func New(risks *domain.RiskModel, weather domain.WeatherProvider, publisher domain.EventPublisher, settings Settings, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		risks:     risks,
		weather:   weather,
		publisher: publisher,
		region:    settings.Region,
		minLevel:  settings.MinLevel,
		interval:  settings.Interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a sweep has completed.
func (s *Sweeper) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("risk sweep has not completed yet")
	}
	return nil
}

// Latest returns the most recent successful sweep.
func (s *Sweeper) Latest() (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, !s.last.SweptAt.IsZero()
}

// Run sweeps immediately and then once per interval until the context is
// cancelled. A failed sweep is retried with exponential backoff.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("alert sweep started", "interval", s.interval, "region", s.region, "min_level", s.minLevel)
	s.metrics.SweepRunning.Set(1)
	defer s.metrics.SweepRunning.Set(0)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			s.logger.Info("alert sweep stopping", "reason", ctx.Err())
			return nil
		}

		if _, err := s.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.SweepErrors.Inc()
			s.logger.Error("risk sweep failed", "error", err, "retry_in", backoff)
			if !s.sleep(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}

		backoff = initialBackoff
		if !s.sleep(ctx, s.interval) {
			s.logger.Info("alert sweep stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep assesses every monitored crop once and publishes alerts for diseases
// at or above the minimum level.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	start := time.Now()

	w, err := s.weather.Current(ctx, s.region)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch weather: %w", err)
	}
	now := domain.Now()

	crops := s.risks.Crops()
	sum := Summary{SweptAt: now, Region: s.region, MinLevel: string(s.minLevel), Crops: len(crops), Alerts: []Alert{}}
	var events []domain.Event
	for _, crop := range crops {
		cr, err := s.risks.Assess(crop, w, now.Month())
		if err != nil {
			s.logger.Warn("assess crop failed", "crop", crop, "error", err)
			continue
		}
		for _, d := range cr.Diseases {
			s.metrics.RiskAssessments.WithLabelValues(string(d.Level)).Inc()
			if !d.Level.AtLeast(s.minLevel) {
				continue
			}
			a := Alert{
				Crop:                crop,
				Region:              s.region,
				Disease:             d.Disease,
				Level:               d.Level,
				Score:               d.Score,
				ContributingFactors: d.ContributingFactors,
				Advisory:            d.Advisory,
				Weather:             w,
			}
			sum.Alerts = append(sum.Alerts, a)
			events = append(events, domain.Event{
				ID:         uuid.NewString(),
				Type:       domain.EventRiskAlert,
				Key:        crop,
				OccurredAt: now,
				Payload:    a,
			})
		}
	}

	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.metrics.EventsPublished.WithLabelValues(string(domain.EventRiskAlert), "error").Add(float64(len(events)))
			return Summary{}, fmt.Errorf("publish alerts: %w", err)
		}
		s.metrics.EventsPublished.WithLabelValues(string(domain.EventRiskAlert), "success").Add(float64(len(events)))
	}

	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()
	s.ready.Store(true)

	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("risk sweep complete", "crops", len(crops), "alerts", len(sum.Alerts))
	return sum, nil
}

// sleep waits on the injected clock so tests can advance time.
func (s *Sweeper) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}

