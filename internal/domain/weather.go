package domain

import (
	"context"
	"math"
	"time"
)

// WeatherObservation is an immutable snapshot of current conditions. It may be
// simulated or sourced from a real provider; scoring treats it as "current".
type WeatherObservation struct {
	Region      string    `json:"region"`
	Temperature float64   `json:"temperature_celsius"`
	Humidity    float64   `json:"humidity_percent"`
	Rainfall    float64   `json:"rainfall_mm"`
	WindSpeed   float64   `json:"wind_speed_kmh"`
	Timestamp   time.Time `json:"timestamp"`
	Season      string    `json:"season"`
	Source      string    `json:"source,omitempty"`
}

// WeatherProvider supplies the current observation for a region.
type WeatherProvider interface {
	Current(ctx context.Context, region string) (WeatherObservation, error)
}

// SimulatedSource labels observations produced by SimulateWeather.
const SimulatedSource = "simulated"

// SimulateWeather derives a deterministic observation from the calendar date:
// monsoon (Jun-Sep) is warm, very humid and wet; summer (Mar-May) is hot and
// dry; every other month is mild and dry. Values oscillate with the day of
// month so consecutive days differ.
func SimulateWeather(region string, at time.Time) WeatherObservation {
	day := at.Day()
	wave := float64(day%10 - 5)

	obs := WeatherObservation{
		Region:    region,
		Timestamp: at,
		Source:    SimulatedSource,
	}

	switch at.Month() {
	case time.June, time.July, time.August, time.September:
		obs.Temperature = 26 + wave
		obs.Humidity = 85 + wave
		obs.Rainfall = float64(10 + (day%30)/3)
		obs.WindSpeed = float64(8 + (day%10)/2)
	case time.March, time.April, time.May:
		obs.Temperature = 32 + wave
		obs.Humidity = 45 + wave
		obs.Rainfall = 0.5 + float64(day%10)/20
		obs.WindSpeed = float64(12 + (day%10)/2)
	default:
		obs.Temperature = 20 + wave
		obs.Humidity = 50 + wave
		obs.Rainfall = 0.2 + float64(day%10)/50
		obs.WindSpeed = float64(6 + (day%10)/2)
	}
	obs.Season = SeasonFor(at.Month())

	obs.Temperature = round(obs.Temperature, 1)
	obs.Humidity = round(obs.Humidity, 1)
	obs.Rainfall = round(obs.Rainfall, 2)
	obs.WindSpeed = round(obs.WindSpeed, 1)
	return obs
}

// SeasonFor labels a month with its weather season and the disease pressure
// that season usually brings.
func SeasonFor(m time.Month) string {
	switch m {
	case time.June, time.July, time.August, time.September:
		return "Monsoon (High Disease Risk)"
	case time.March, time.April, time.May:
		return "Summer (Moderate Risk)"
	default:
		return "Winter (Low Risk)"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
