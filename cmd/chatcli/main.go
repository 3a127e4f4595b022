// Command chatcli talks to the dialogue engine from a terminal.
//
// Usage:
//
//	go run ./cmd/chatcli repl --user u-1
//	go run ./cmd/chatcli replay data/scripts/forecast_flow.yaml --offline
//	go run ./cmd/chatcli validate data/scripts/*.yaml
package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/weather-chat-service/internal/bootstrap"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/dialogue"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
)

var (
	offline bool
	verbose bool
	userID  string
)

var rootCmd = &cobra.Command{
	Use:           "chatcli",
	Short:         "Chat with the weather assistant from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// A missing .env file is fine; the environment may already be set.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Answer forecasts from a canned provider instead of FORECAST_URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every turn")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User ID to send (empty means anonymous)")

	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newEngine builds an engine from the environment. Metrics are kept in an
// unregistered set since the CLI serves no /metrics endpoint.
func newEngine(ctx context.Context) (*dialogue.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, "text")
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewRealClock()

	res, err := bootstrap.LoadResources(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := bootstrap.NewServices(ctx, cfg, logger, metrics, clock)
	if err != nil {
		return nil, err
	}
	if offline {
		svc.Forecasts = cannedForecasts{clock: clock}
	}
	store := bootstrap.NewStore(cfg, logger, metrics, clock)
	return bootstrap.NewEngine(cfg, res, svc, store, logger, metrics, clock)
}
