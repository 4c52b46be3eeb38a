package weather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testLocations = map[string]Coordinates{"Karnataka": {Lat: 15.3173, Lon: 75.7139}}

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, timeout, testLocations, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Current_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "15.3173", q.Get("latitude"))
		assert.Equal(t, "75.7139", q.Get("longitude"))
		assert.Contains(t, q.Get("current"), "relative_humidity_2m")

		resp := response{Current: current{
			Time:          "2024-07-15T06:30",
			Temperature:   24.6,
			Humidity:      91,
			Precipitation: 3.2,
			WindSpeed:     14.1,
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL, 5*time.Second).Current(context.Background(), "karnataka")
	require.NoError(t, err)

	assert.Equal(t, "karnataka", obs.Region)
	assert.InDelta(t, 24.6, obs.Temperature, 1e-9)
	assert.InDelta(t, 91, obs.Humidity, 1e-9)
	assert.InDelta(t, 3.2, obs.Rainfall, 1e-9)
	assert.InDelta(t, 14.1, obs.WindSpeed, 1e-9)
	assert.Equal(t, time.Date(2024, time.July, 15, 6, 30, 0, 0, time.UTC), obs.Timestamp)
	assert.Equal(t, "Monsoon (High Disease Risk)", obs.Season)
	assert.Equal(t, OpenMeteoSource, obs.Source)
}

func TestClient_Current_UnknownRegion(t *testing.T) {
	c := testClient("http://127.0.0.1:0", 5*time.Second)

	_, err := c.Current(context.Background(), "Atlantis")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Current_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Current(context.Background(), "Karnataka")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_Current_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"current":`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Current(context.Background(), "Karnataka")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Current_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).Current(context.Background(), "Karnataka")
	require.Error(t, err)
}
