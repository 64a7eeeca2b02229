// Package metrics exposes the controller's counters on /metrics and its
// liveness on /healthz.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	reg *prometheus.Registry

	modeEntries      *prometheus.CounterVec
	activeMode       *prometheus.GaugeVec
	pumpEvents       *prometheus.CounterVec
	pumpRunning      prometheus.Gauge
	moisture         prometheus.Gauge
	rainPercent      prometheus.Gauge
	forecastRequests *prometheus.CounterVec
	sensorErrors     prometheus.Counter
	connectFailures  prometheus.Counter
	breakerState     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		modeEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pot_mode_entries_total",
			Help: "Times each controller mode was entered.",
		}, []string{"mode"}),
		activeMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pot_mode_active",
			Help: "1 for the mode currently running, 0 otherwise.",
		}, []string{"mode"}),
		pumpEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pot_pump_events_total",
			Help: "Pump transitions by kind (on, off, safety_cutoff, refused).",
		}, []string{"kind"}),
		pumpRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pot_pump_running",
			Help: "1 while the pump relay is on.",
		}),
		moisture: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pot_soil_moisture_raw",
			Help: "Last soil reading in raw ADC units.",
		}),
		rainPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pot_rain_probability_percent",
			Help: "Last known rain probability.",
		}),
		forecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pot_forecast_requests_total",
			Help: "Forecast fetches by result (known, unavailable).",
		}, []string{"result"}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pot_sensor_errors_total",
			Help: "Soil sensor read failures.",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pot_connectivity_failures_total",
			Help: "Network establishment rounds that gave up.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pot_forecast_breaker_state",
			Help: "Forecast circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}
	m.reg.MustRegister(
		m.modeEntries,
		m.activeMode,
		m.pumpEvents,
		m.pumpRunning,
		m.moisture,
		m.rainPercent,
		m.forecastRequests,
		m.sensorErrors,
		m.connectFailures,
		m.breakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, mode := range model.Modes() {
		m.activeMode.WithLabelValues(mode.String()).Set(0)
	}
	return m
}

// Registry is the registry served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) EnterMode(mode model.Mode) {
	if m == nil {
		return
	}
	m.modeEntries.WithLabelValues(mode.String()).Inc()
	for _, other := range model.Modes() {
		v := 0.0
		if other == mode {
			v = 1
		}
		m.activeMode.WithLabelValues(other.String()).Set(v)
	}
}

func (m *Metrics) PumpEvent(ev model.PumpEvent) {
	if m == nil {
		return
	}
	m.pumpEvents.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case model.PumpOn:
		m.pumpRunning.Set(1)
	case model.PumpOff, model.SafetyCutoff:
		m.pumpRunning.Set(0)
	}
}

func (m *Metrics) Moisture(r model.MoistureReading) {
	if m == nil {
		return
	}
	m.moisture.Set(float64(r))
}

func (m *Metrics) SensorError() {
	if m == nil {
		return
	}
	m.sensorErrors.Inc()
}

func (m *Metrics) Forecast(r model.RainForecast) {
	if m == nil {
		return
	}
	if p, ok := r.Percent(); ok {
		m.forecastRequests.WithLabelValues("known").Inc()
		m.rainPercent.Set(float64(p))
		return
	}
	m.forecastRequests.WithLabelValues("unavailable").Inc()
}

// BreakerState records the breaker state as 0 closed, 1 half-open, 2 open.
func (m *Metrics) BreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

func (m *Metrics) ConnectivityFailure() {
	if m == nil {
		return
	}
	m.connectFailures.Inc()
}
