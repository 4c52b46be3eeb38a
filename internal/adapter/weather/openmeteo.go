package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// OpenMeteoSource labels observations fetched from Open-Meteo.
const OpenMeteoSource = "open-meteo"

// Coordinates locates a region.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Client implements domain.WeatherProvider using the Open-Meteo forecast API.
// Regions are resolved through a fixed coordinate table.
type Client struct {
	httpClient *http.Client
	baseURL    string
	locations  map[string]Coordinates
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client for the given regions.
func NewClient(baseURL string, timeout time.Duration, locations map[string]Coordinates, logger *slog.Logger) *Client {
	locs := make(map[string]Coordinates, len(locations))
	for name, c := range locations {
		locs[strings.ToLower(name)] = c
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		locations: locs,
		logger:    logger,
	}
}

// Current fetches current conditions at the region's coordinates.
func (c *Client) Current(ctx context.Context, region string) (domain.WeatherObservation, error) {
	loc, ok := c.locations[strings.ToLower(strings.TrimSpace(region))]
	if !ok {
		return domain.WeatherObservation{}, fmt.Errorf("no coordinates for region %q: %w", region, domain.ErrNotFound)
	}

	params := url.Values{
		"latitude":  {strconv.FormatFloat(loc.Lat, 'f', 4, 64)},
		"longitude": {strconv.FormatFloat(loc.Lon, 'f', 4, 64)},
		"current":   {"temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.WeatherObservation{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: %w", err)
	}

	ts, err := time.Parse("2006-01-02T15:04", out.Current.Time)
	if err != nil {
		c.logger.Debug("unparseable observation time, using now", "time", out.Current.Time, "error", err)
		ts = domain.Now()
	}
	return domain.WeatherObservation{
		Region:      region,
		Temperature: out.Current.Temperature,
		Humidity:    out.Current.Humidity,
		Rainfall:    out.Current.Precipitation,
		WindSpeed:   out.Current.WindSpeed,
		Timestamp:   ts,
		Season:      domain.SeasonFor(ts.Month()),
		Source:      OpenMeteoSource,
	}, nil
}

// Open-Meteo API response types.

type response struct {
	Current current `json:"current"`
}

type current struct {
	Time          string  `json:"time"` // GMT, minute precision
	Temperature   float64 `json:"temperature_2m"`
	Humidity      float64 `json:"relative_humidity_2m"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"wind_speed_10m"`
}
