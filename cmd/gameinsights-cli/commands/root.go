package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gameinsights-backend/internal/collector"
	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/restyutil"
	libtelemetry "gameinsights-backend/lib/telemetry"
)

var (
	verbose   *bool
	quiet     *bool
	debugHttp *string

	calls           *int
	period          *time.Duration
	region          *string
	language        *string
	steamApiKey     *string
	gamalyticApiKey *string
	concurrency     *int
)

var rootCmd = &cobra.Command{
	Use:   "gameinsights-cli",
	Short: "gameinsights-cli fetches and merges per-game steam metadata.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if *verbose {
			level = slog.LevelDebug
		}
		if *quiet {
			level = slog.LevelWarn
		}
		libtelemetry.InitSlogLevel(level)

		if *debugHttp != "" {
			fetch.SetInstrumentOutput(restyutil.NewFilesystemOutput(*debugHttp))
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	verbose = flags.BoolP("verbose", "v", false, "Log at debug level.")
	quiet = flags.Bool("quiet", false, "Log warnings and errors only.")
	debugHttp = flags.String("debug-http", "", "Dump every HTTP exchange into this directory.")

	calls = flags.Int("calls", 60, "Per-game aggregations started per period, shared across all sources.")
	period = flags.Duration("period", time.Minute, "Rate limit period.")
	region = flags.String("region", "us", "Steam storefront region.")
	language = flags.String("language", "english", "Steam storefront language.")
	steamApiKey = flags.String("steam-api-key", "", "Steam Web API key, falls back to STEAM_WEB_API_KEY.")
	gamalyticApiKey = flags.String("gamalytic-api-key", "", "Gamalytic API key, falls back to GAMALYTIC_API_KEY.")
	concurrency = flags.Int("concurrency", 4, "Games collected in parallel.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func apiKey(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envName)
}

func buildCollector() (*collector.Collector, error) {
	return collector.New(ratelimit.NewRegistry(), telemetry.SlogAPI{}, collector.Options{
		Region:          *region,
		Language:        *language,
		SteamApiKey:     apiKey(*steamApiKey, "STEAM_WEB_API_KEY"),
		GamalyticApiKey: apiKey(*gamalyticApiKey, "GAMALYTIC_API_KEY"),
		Calls:           *calls,
		Period:          *period,
		Workers:         *concurrency,
	})
}
