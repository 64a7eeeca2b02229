package irrigation_controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

type forecastResp struct {
	Forecast struct {
		ForecastDay []struct {
			Day struct {
				DailyChanceOfRain json.RawMessage `json:"daily_chance_of_rain"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// WeatherAPIClient asks a weatherapi.com style endpoint for today's chance of rain.
type WeatherAPIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

// NewWeatherAPIClient builds the client. onBreaker, when set, is told about
// every breaker state change (0 closed, 1 half-open, 2 open).
func NewWeatherAPIClient(cfg config.Forecast, onBreaker func(state int)) *WeatherAPIClient {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	fails := cfg.BreakerFailures
	if fails < 1 {
		fails = 1
	}
	return &WeatherAPIClient{
		baseURL: scheme + "://" + cfg.Host,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout.D()},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "forecast",
			Timeout: cfg.BreakerOpenFor.D(),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(fails)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("forecast: breaker %s -> %s", from, to)
				if onBreaker != nil {
					onBreaker(int(to))
				}
			},
		}),
	}
}

// Fetch returns today's rain probability, or Unavailable on any failure.
func (c *WeatherAPIClient) Fetch(ctx context.Context, loc model.Location) model.RainForecast {
	if c.apiKey == "" {
		log.Printf("forecast: %v: missing api key", model.ErrForecastUnavailable)
		return model.Unavailable
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.chanceOfRain(ctx, loc)
	})
	if err != nil {
		log.Printf("forecast: %v: %v", model.ErrForecastUnavailable, err)
		return model.Unavailable
	}
	pct := res.(int)
	log.Printf("forecast: rain probability %d%%", pct)
	return model.Known(pct)
}

func (c *WeatherAPIClient) chanceOfRain(ctx context.Context, loc model.Location) (int, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", loc.Query())
	q.Set("days", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast.json?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out forecastResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if len(out.Forecast.ForecastDay) == 0 {
		return 0, fmt.Errorf("no forecast days")
	}
	return parsePercent(out.Forecast.ForecastDay[0].Day.DailyChanceOfRain)
}

// parsePercent accepts an integer given either as a JSON number or as a
// numeric string, in the range 0..100.
func parsePercent(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("daily_chance_of_rain missing")
	}
	var v int
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("daily_chance_of_rain %q: %w", s, err)
		}
		v = n
	} else {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, fmt.Errorf("daily_chance_of_rain %s: %w", raw, err)
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("daily_chance_of_rain %s is not an integer", raw)
		}
		v = int(f)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("daily_chance_of_rain %d out of range", v)
	}
	return v, nil
}

