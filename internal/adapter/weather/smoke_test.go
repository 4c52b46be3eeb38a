//go:build openmeteo

package weather

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Open-Meteo API.
// Run with: go test -tags=openmeteo ./internal/adapter/weather/ -v -count=1

func TestSmoke_Current(t *testing.T) {
	c := NewClient("https://api.open-meteo.com/v1/forecast", 10*time.Second, testLocationsSmoke, slog.New(slog.NewTextHandler(io.Discard, nil)))

	obs, err := c.Current(context.Background(), "Karnataka")
	require.NoError(t, err)

	assert.Equal(t, OpenMeteoSource, obs.Source)
	assert.False(t, obs.Timestamp.IsZero())
	assert.InDelta(t, 25, obs.Temperature, 25, "temperature should be plausible for southern India")
	assert.GreaterOrEqual(t, obs.Humidity, 0.0)
	assert.LessOrEqual(t, obs.Humidity, 100.0)
	t.Logf("Karnataka: %.1f°C, %.0f%% humidity, %.1f mm", obs.Temperature, obs.Humidity, obs.Rainfall)
}

var testLocationsSmoke = map[string]Coordinates{"Karnataka": {Lat: 15.3173, Lon: 75.7139}}
