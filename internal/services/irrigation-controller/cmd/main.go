package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeonardoBeccarini/pot_irrigation/internal/clock"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/config"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/hal"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/model"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/network"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/services/aggregator"
	"github.com/LeonardoBeccarini/pot_irrigation/internal/services/device"
	controller "github.com/LeonardoBeccarini/pot_irrigation/internal/services/irrigation-controller"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := env("POT_CONFIG", config.DefaultPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	th := cfg.Thresholds()
	log.Printf("pot: moisture threshold %d (%s), rain threshold %d%%, pulse %s, max run %s",
		th.MoistureThreshold, th.Polarity, th.RainThresholdPercent, th.AutoIrrigationRuntime, cfg.Safety.MaxRun.D())

	clk := clock.Real()
	devices, err := hal.Open(ctx, cfg, clk)
	if err != nil {
		log.Fatalf("hal: %v", err)
	}
	defer devices.Close()

	m := metrics.New()
	health := metrics.NewHealth(cfg.StallBudget(), nil)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.NewRouter(m, health)); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	pump := device.NewPump(devices.Relay, clk, cfg.Safety.MaxRun.D(), cfg.Safety.Rest.D(), func(ev model.PumpEvent) {
		m.PumpEvent(ev)
	})

	var link network.Link = network.AlwaysUp{}
	if cfg.Network.Link == "nmcli" {
		link = network.NewNMCLILink(cfg.Network.Interface)
	}
	conn := network.NewConnector(link, cfg.WiFi.SSID, cfg.WiFi.Password,
		cfg.Network.MaxAttempts, cfg.Network.MaxElapsed.D(), cfg.Network.JoinTimeout.D(), cfg.Network.RoundGap.D(), clk)

	ctrl, err := controller.NewController(controller.Deps{
		Sampler:    aggregator.NewSampler(devices.SensorA, devices.SensorB),
		Forecaster: controller.NewWeatherAPIClient(cfg.Forecast, m.BreakerState),
		Pump:       pump,
		Screen:     controller.NewScreen(devices.Display, cfg.Hardware.LCDCols),
		Keys:       controller.NewKeyOwner(devices.Keypad),
		Network:    conn,
		Clock:      clk,
		Metrics:    m,
		Health:     health,
	}, th, cfg.Forecast.Location, cfg.Timing)
	if err != nil {
		log.Fatalf("controller init: %v", err)
	}

	log.Printf("pot: controller started (driver %s, config %s)", cfg.Hardware.Driver, cfgPath)
	ctrl.Run(ctx)
	log.Printf("pot: shutdown complete")
}
