package main

import (
	"time"

	"gameinsights-backend/internal/collector"
	"gameinsights-backend/internal/gamesearch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/configutil"
	"gameinsights-backend/lib/serviceutil"
	libtelemetry "gameinsights-backend/lib/telemetry"
)

type Config struct {
	Port int `json:"port"`

	// Calls per Period bound how many per-game aggregations start per
	// rolling window. Period is a duration string like "1m".
	Calls  int    `json:"calls"`
	Period string `json:"period"`

	Region   string `json:"region"`
	Language string `json:"language"`

	SteamApiKey     string `json:"steam_api_key"`
	GamalyticApiKey string `json:"gamalytic_api_key"`

	Concurrency int `json:"concurrency"`
}

func main() {
	ctx := serviceutil.SignalContext()

	libtelemetry.InitSlog(false)
	_, err := libtelemetry.SetupFromEnv(ctx, "gameinsightsd")
	if err != nil {
		serviceutil.Fatal("failed to set up telemetry", err)
	}
	libtelemetry.InstrumentRuntimeStats(ctx)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}

	var period time.Duration
	if config.Period != "" {
		period, err = time.ParseDuration(config.Period)
		if err != nil {
			serviceutil.Fatal("failed to parse rate limit period", err)
		}
	}

	tel := telemetry.NewMeterAPI(telemetry.SlogAPI{})
	c, err := collector.New(ratelimit.NewRegistry(), tel, collector.Options{
		Region:          config.Region,
		Language:        config.Language,
		SteamApiKey:     config.SteamApiKey,
		GamalyticApiKey: config.GamalyticApiKey,
		Calls:           config.Calls,
		Period:          period,
		Workers:         config.Concurrency,
	})
	if err != nil {
		serviceutil.Fatal("failed to build collector", err)
	}
	searcher := gamesearch.New(tel, gamesearch.Options{})

	port := config.Port
	if port == 0 {
		port = 9320
	}
	go serviceutil.StartHttpServer(port, newServer(c, searcher).mux())

	<-ctx.Done()
}
