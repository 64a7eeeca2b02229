// Package config loads the controller configuration once at startup: a YAML
// file first, then environment overrides. The result is never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

const DefaultPath = "/etc/pot/config.yaml"

// Duration is a time.Duration that reads "3s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) { return time.Duration(d).String(), nil }

func (d Duration) D() time.Duration { return time.Duration(d) }

type WiFi struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
}

type Forecast struct {
	Host            string         `yaml:"host"`
	Scheme          string         `yaml:"scheme"`
	APIKey          string         `yaml:"api_key"`
	Location        model.Location `yaml:"location"`
	Timeout         Duration       `yaml:"timeout"`
	BreakerFailures int            `yaml:"breaker_failures"`
	BreakerOpenFor  Duration       `yaml:"breaker_open_for"`
}

type Irrigation struct {
	MoistureThreshold    int      `yaml:"moisture_threshold"`
	RainThresholdPercent int      `yaml:"rain_threshold_percent"`
	PumpRuntime          Duration `yaml:"pump_runtime"`
	Polarity             string   `yaml:"polarity"`
}

// Safety bounds the pump independently of the control loop.
type Safety struct {
	MaxRun Duration `yaml:"max_run"`
	Rest   Duration `yaml:"rest"`
}

// Timing holds the loop pacing and the pauses after each screen.
type Timing struct {
	SelectPoll   Duration `yaml:"select_poll"`
	SoilTick     Duration `yaml:"soil_tick"`
	MenuSettle   Duration `yaml:"menu_settle"`
	ModeBanner   Duration `yaml:"mode_banner"`
	SoilBanner   Duration `yaml:"soil_banner"`
	SoilExit     Duration `yaml:"soil_exit"`
	RainResult   Duration `yaml:"rain_result"`
	BothResult   Duration `yaml:"both_result"`
	ManualResult Duration `yaml:"manual_result"`
	Returning    Duration `yaml:"returning"`
	Connected    Duration `yaml:"connected"`
}

type Network struct {
	Link        string   `yaml:"link"` // nmcli | always-up
	Interface   string   `yaml:"interface"`
	MaxAttempts int      `yaml:"max_attempts"`
	MaxElapsed  Duration `yaml:"max_elapsed"`
	JoinTimeout Duration `yaml:"join_timeout"`
	RoundGap    Duration `yaml:"round_gap"` // cap on the pause between failed rounds
}

type Hardware struct {
	Driver         string   `yaml:"driver"` // periph | sim
	RelayPin       string   `yaml:"relay_pin"`
	RelayActiveLow bool     `yaml:"relay_active_low"`
	SensorA        string   `yaml:"sensor_a"` // IIO raw channel path
	SensorB        string   `yaml:"sensor_b"`
	ADCBits        int      `yaml:"adc_bits"`
	I2CBus         string   `yaml:"i2c_bus"`
	LCDAddr        uint16   `yaml:"lcd_addr"`
	LCDCols        int      `yaml:"lcd_cols"`
	LCDRows        int      `yaml:"lcd_rows"`
	KeypadRows     []string `yaml:"keypad_rows"`
	KeypadCols     []string `yaml:"keypad_cols"`
	KeyDebounce    Duration `yaml:"key_debounce"`
}

// Panel configures the MQTT virtual display/keypad. Disabled when Host is empty.
type Panel struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type Config struct {
	WiFi        WiFi       `yaml:"wifi"`
	Forecast    Forecast   `yaml:"forecast"`
	Irrigation  Irrigation `yaml:"irrigation"`
	Safety      Safety     `yaml:"safety"`
	Timing      Timing     `yaml:"timing"`
	Network     Network    `yaml:"network"`
	Hardware    Hardware   `yaml:"hardware"`
	Panel       Panel      `yaml:"panel"`
	MetricsAddr string     `yaml:"metrics_addr"`
}

// Default mirrors the stock pot wiring and thresholds.
func Default() Config {
	return Config{
		Forecast: Forecast{
			Host:            "api.weatherapi.com",
			Scheme:          "https",
			Location:        model.Location{Latitude: 10.3333, Longitude: 76.2333},
			Timeout:         Duration(8 * time.Second),
			BreakerFailures: 3,
			BreakerOpenFor:  Duration(time.Minute),
		},
		Irrigation: Irrigation{
			MoistureThreshold:    50000,
			RainThresholdPercent: 60,
			PumpRuntime:          Duration(3 * time.Second),
			Polarity:             string(model.DryHigh),
		},
		Safety: Safety{
			MaxRun: Duration(10 * time.Minute),
			Rest:   Duration(time.Minute),
		},
		Timing: Timing{
			SelectPoll:   Duration(100 * time.Millisecond),
			SoilTick:     Duration(time.Second),
			MenuSettle:   Duration(500 * time.Millisecond),
			ModeBanner:   Duration(500 * time.Millisecond),
			SoilBanner:   Duration(time.Second),
			SoilExit:     Duration(2 * time.Second),
			RainResult:   Duration(3 * time.Second),
			BothResult:   Duration(2 * time.Second),
			ManualResult: Duration(2 * time.Second),
			Returning:    Duration(2 * time.Second),
			Connected:    Duration(time.Second),
		},
		Network: Network{
			Link:        "nmcli",
			MaxAttempts: 5,
			MaxElapsed:  Duration(time.Minute),
			JoinTimeout: Duration(20 * time.Second),
			RoundGap:    Duration(30 * time.Second),
		},
		Hardware: Hardware{
			Driver:         "periph",
			RelayPin:       "GPIO7",
			RelayActiveLow: true,
			SensorA:        "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
			SensorB:        "/sys/bus/iio/devices/iio:device0/in_voltage1_raw",
			ADCBits:        12,
			LCDAddr:        0x27,
			LCDCols:        16,
			LCDRows:        2,
			KeypadRows:     []string{"GPIO2", "GPIO3", "GPIO4", "GPIO5"},
			KeypadCols:     []string{"GPIO6", "GPIO8", "GPIO9", "GPIO10"},
			KeyDebounce:    Duration(300 * time.Millisecond),
		},
		Panel: Panel{
			Port:        1883,
			ClientID:    "pot-panel",
			TopicPrefix: "pot",
		},
	}
}

// Load reads path (a missing file is not an error), applies env overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.WiFi.SSID = env("WIFI_SSID", c.WiFi.SSID)
	c.WiFi.Password = env("WIFI_PASSWORD", c.WiFi.Password)

	c.Forecast.APIKey = env("WEATHER_API_KEY", c.Forecast.APIKey)
	c.Forecast.Host = env("WEATHER_HOST", c.Forecast.Host)
	c.Forecast.Location.Latitude = getenvFloat("LATITUDE", c.Forecast.Location.Latitude)
	c.Forecast.Location.Longitude = getenvFloat("LONGITUDE", c.Forecast.Location.Longitude)

	c.Irrigation.MoistureThreshold = envInt("MOISTURE_THRESHOLD", c.Irrigation.MoistureThreshold)
	c.Irrigation.RainThresholdPercent = envInt("RAIN_THRESHOLD", c.Irrigation.RainThresholdPercent)
	c.Irrigation.Polarity = env("MOISTURE_POLARITY", c.Irrigation.Polarity)

	var err error
	if c.Irrigation.PumpRuntime, err = envDuration("PUMP_RUNTIME", c.Irrigation.PumpRuntime); err != nil {
		return err
	}
	if c.Safety.MaxRun, err = envDuration("PUMP_MAX_RUN", c.Safety.MaxRun); err != nil {
		return err
	}
	if c.Safety.Rest, err = envDuration("PUMP_REST", c.Safety.Rest); err != nil {
		return err
	}

	c.Hardware.Driver = env("HAL_DRIVER", c.Hardware.Driver)
	c.Network.Link = env("NETWORK_LINK", c.Network.Link)

	c.Panel.Host = env("MQTT_HOST", c.Panel.Host)
	c.Panel.Port = envInt("MQTT_PORT", c.Panel.Port)
	c.Panel.User = env("MQTT_USER", c.Panel.User)
	c.Panel.Password = env("MQTT_PASSWORD", c.Panel.Password)

	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	return nil
}

// Validate rejects values the controller cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Irrigation.MoistureThreshold < 0 || c.Irrigation.MoistureThreshold > 65535 {
		errs = append(errs, fmt.Errorf("moisture_threshold %d out of range 0..65535", c.Irrigation.MoistureThreshold))
	}
	if c.Irrigation.RainThresholdPercent < 0 || c.Irrigation.RainThresholdPercent > 100 {
		errs = append(errs, fmt.Errorf("rain_threshold_percent %d out of range 0..100", c.Irrigation.RainThresholdPercent))
	}
	if c.Irrigation.PumpRuntime <= 0 {
		errs = append(errs, errors.New("pump_runtime must be positive"))
	}
	switch model.Polarity(c.Irrigation.Polarity) {
	case model.DryHigh, model.DryLow:
	default:
		errs = append(errs, fmt.Errorf("unknown polarity %q", c.Irrigation.Polarity))
	}
	if c.Safety.MaxRun <= 0 {
		errs = append(errs, errors.New("safety max_run must be positive"))
	}
	if c.Safety.Rest < 0 {
		errs = append(errs, errors.New("safety rest must not be negative"))
	}
	if c.Forecast.Timeout <= 0 {
		errs = append(errs, errors.New("forecast timeout must be positive"))
	}
	if c.Timing.SelectPoll <= 0 || c.Timing.SoilTick <= 0 {
		errs = append(errs, errors.New("select_poll and soil_tick must be positive"))
	}
	switch c.Hardware.Driver {
	case "periph", "sim":
	default:
		errs = append(errs, fmt.Errorf("unknown hardware driver %q", c.Hardware.Driver))
	}
	if c.Network.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("network max_attempts %d must be at least 1", c.Network.MaxAttempts))
	}
	if c.Network.RoundGap <= 0 || c.Network.JoinTimeout <= 0 {
		errs = append(errs, errors.New("network round_gap and join_timeout must be positive"))
	}
	switch c.Network.Link {
	case "nmcli", "always-up":
	default:
		errs = append(errs, fmt.Errorf("unknown network link %q", c.Network.Link))
	}
	return errors.Join(errs...)
}

// Thresholds returns the immutable irrigation thresholds.
func (c Config) Thresholds() model.Thresholds {
	return model.Thresholds{
		MoistureThreshold:     model.MoistureReading(c.Irrigation.MoistureThreshold),
		RainThresholdPercent:  c.Irrigation.RainThresholdPercent,
		AutoIrrigationRuntime: c.Irrigation.PumpRuntime.D(),
		Polarity:              model.Polarity(c.Irrigation.Polarity),
	}
}

// StallBudget is the longest gap between two controller heartbeats that is
// still healthy: a full connect round and the pause before the next one, a
// forecast fetch and an irrigation pulse.
func (c Config) StallBudget() time.Duration {
	round := time.Duration(c.Network.MaxAttempts)*c.Network.JoinTimeout.D() + c.Network.MaxElapsed.D()
	return round + c.Network.RoundGap.D() + c.Forecast.Timeout.D() + c.Irrigation.PumpRuntime.D() + 30*time.Second
}

// --------------------- small helpers ---------------------

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def Duration) (Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return Duration(d), nil
}
