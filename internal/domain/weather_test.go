package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulateWeather(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want WeatherObservation
	}{
		{
			name: "monsoon",
			at:   date(2024, time.July, 15),
			want: WeatherObservation{Temperature: 26, Humidity: 85, Rainfall: 15, WindSpeed: 10, Season: "Monsoon (High Disease Risk)"},
		},
		{
			name: "summer",
			at:   date(2024, time.April, 3),
			want: WeatherObservation{Temperature: 30, Humidity: 43, Rainfall: 0.65, WindSpeed: 13, Season: "Summer (Moderate Risk)"},
		},
		{
			name: "winter",
			at:   date(2024, time.January, 10),
			want: WeatherObservation{Temperature: 15, Humidity: 45, Rainfall: 0.2, WindSpeed: 6, Season: "Winter (Low Risk)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimulateWeather("Karnataka", tt.at)

			assert.Equal(t, tt.want.Temperature, got.Temperature)
			assert.Equal(t, tt.want.Humidity, got.Humidity)
			assert.Equal(t, tt.want.Rainfall, got.Rainfall)
			assert.Equal(t, tt.want.WindSpeed, got.WindSpeed)
			assert.Equal(t, tt.want.Season, got.Season)
			assert.Equal(t, "Karnataka", got.Region)
			assert.Equal(t, SimulatedSource, got.Source)
			assert.Equal(t, tt.at, got.Timestamp)
		})
	}
}

func TestSimulateWeather_Deterministic(t *testing.T) {
	at := date(2024, time.August, 22)

	assert.Equal(t, SimulateWeather("Karnataka", at), SimulateWeather("Karnataka", at))
	assert.NotEqual(t, SimulateWeather("Karnataka", at).Temperature, SimulateWeather("Karnataka", at.AddDate(0, 0, 1)).Temperature)
}
