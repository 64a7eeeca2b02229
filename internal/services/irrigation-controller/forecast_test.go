package irrigation_controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

var testLocation = model.Location{Latitude: 10.3333, Longitude: 76.2333}

func forecastConfig(srv *httptest.Server) config.Forecast {
	return config.Forecast{
		Host:            strings.TrimPrefix(srv.URL, "http://"),
		Scheme:          "http",
		APIKey:          "k3y",
		Timeout:         config.Duration(time.Second),
		BreakerFailures: 3,
		BreakerOpenFor:  config.Duration(time.Minute),
	}
}

func forecastServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchSendsExpectedRequest(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":40}}]}}`))
	}))
	defer srv.Close()

	r := NewWeatherAPIClient(forecastConfig(srv), nil).Fetch(context.Background(), testLocation)

	assert.Equal(t, model.Known(40), r)
	require.NotNil(t, got)
	assert.Equal(t, "/v1/forecast.json", got.URL.Path)
	assert.Equal(t, "k3y", got.URL.Query().Get("key"))
	assert.Equal(t, "10.3333,76.2333", got.URL.Query().Get("q"))
	assert.Equal(t, "1", got.URL.Query().Get("days"))
}

func TestFetchParsesChanceOfRain(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.RainForecast
	}{
		{"number", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":87}}]}}`, model.Known(87)},
		{"string", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":"12"}}]}}`, model.Known(12)},
		{"zero", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":0}}]}}`, model.Known(0)},
		{"missing field", `{"forecast":{"forecastday":[{"day":{}}]}}`, model.Unavailable},
		{"null field", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":null}}]}}`, model.Unavailable},
		{"no days", `{"forecast":{"forecastday":[]}}`, model.Unavailable},
		{"out of range", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":140}}]}}`, model.Unavailable},
		{"negative", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":-1}}]}}`, model.Unavailable},
		{"whole float", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":40.0}}]}}`, model.Known(40)},
		{"fractional number", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":40.9}}]}}`, model.Unavailable},
		{"fractional string", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":"40.9"}}]}}`, model.Unavailable},
		{"not a number", `{"forecast":{"forecastday":[{"day":{"daily_chance_of_rain":"lots"}}]}}`, model.Unavailable},
		{"not json", `<html>maintenance</html>`, model.Unavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := forecastServer(t, http.StatusOK, tc.body)
			got := NewWeatherAPIClient(forecastConfig(srv), nil).Fetch(context.Background(), testLocation)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetchNonSuccessStatusIsUnavailable(t *testing.T) {
	srv, _ := forecastServer(t, http.StatusForbidden, `{"error":{"code":2008,"message":"API key has been disabled."}}`)
	got := NewWeatherAPIClient(forecastConfig(srv), nil).Fetch(context.Background(), testLocation)
	assert.Equal(t, model.Unavailable, got)
}

func TestFetchWithoutKeyDoesNotCallOut(t *testing.T) {
	srv, hits := forecastServer(t, http.StatusOK, `{}`)
	cfg := forecastConfig(srv)
	cfg.APIKey = ""
	got := NewWeatherAPIClient(cfg, nil).Fetch(context.Background(), testLocation)
	assert.Equal(t, model.Unavailable, got)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestFetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := forecastConfig(srv)
	cfg.Timeout = config.Duration(50 * time.Millisecond)
	start := time.Now()
	got := NewWeatherAPIClient(cfg, nil).Fetch(context.Background(), testLocation)
	assert.Equal(t, model.Unavailable, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv, hits := forecastServer(t, http.StatusInternalServerError, "boom")
	var states []int
	c := NewWeatherAPIClient(forecastConfig(srv), func(s int) { states = append(states, s) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, model.Unavailable, c.Fetch(context.Background(), testLocation))
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(hits), "open breaker short-circuits")
	assert.Equal(t, []int{2}, states)
}
