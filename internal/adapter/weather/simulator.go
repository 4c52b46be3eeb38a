// Package weather provides domain.WeatherProvider implementations: a
// deterministic simulator, an Open-Meteo client, and a caching decorator.
package weather

import (
	"context"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// Simulator derives the current observation from today's date.
type Simulator struct{}

// NewSimulator creates a Simulator.
func NewSimulator() *Simulator { return &Simulator{} }

func (*Simulator) Current(_ context.Context, region string) (domain.WeatherObservation, error) {
	return domain.SimulateWeather(region, domain.Now()), nil
}
