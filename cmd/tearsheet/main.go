package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guitrading/tearsheet/internal/api"
	"github.com/guitrading/tearsheet/internal/config"
	"github.com/guitrading/tearsheet/internal/history"
	"github.com/guitrading/tearsheet/pkg/tearsheet"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to config file (default: ./tearsheet.yaml)")
		output        = flag.String("output", "", "Output file path (overrides config)")
		format        = flag.String("format", "", "Output format: html or json (default: from output extension)")
		benchmarkPath = flag.String("benchmark", "", "Path to benchmark price archive (zip of csv)")
		serve         = flag.Bool("serve", false, "Serve the tearsheet over HTTP instead of writing a file")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <backtest-result-dir>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	resultDir := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Flag overrides
	if *output != "" {
		cfg.Report.Output = *output
		if *format == "" && strings.HasSuffix(*output, ".json") {
			cfg.Report.Format = "json"
		}
	}
	if *format != "" {
		cfg.Report.Format = *format
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid format")
		}
	}

	log.Info().
		Str("dir", resultDir).
		Float64("periods_per_year", cfg.Report.PeriodsPerYear).
		Int("rolling_window", cfg.Report.RollingWindow()).
		Msg("Generating tearsheet")

	sheet, err := tearsheet.Generate(resultDir, tearsheet.Options{
		PeriodsPerYear: cfg.Report.PeriodsPerYear,
		RollingWindow:  cfg.Report.RollingWindow(),
		BenchmarkPath:  *benchmarkPath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate tearsheet")
	}

	log.Info().
		Float64("total_return", sheet.Strategy.TotalReturn).
		Float64("sharpe_ratio", sheet.Strategy.SharpeRatio).
		Float64("max_drawdown", sheet.Strategy.MaxDrawdown).
		Msg("Computed strategy metrics")

	if cfg.History.Enabled {
		recordRun(cfg.History.Path, resultDir, sheet)
	}

	if *serve {
		serveSheet(cfg, sheet)
		return
	}

	switch cfg.Report.Format {
	case "json":
		err = sheet.SaveJSON(cfg.Report.Output)
	default:
		err = sheet.SaveHTML(cfg.Report.Output)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to write tearsheet")
	}

	log.Info().Str("output", cfg.Report.Output).Msg("Tearsheet written")
}

// recordRun appends the headline metrics to the run-history database. History
// failures are logged but never block report generation.
func recordRun(path, source string, sheet *tearsheet.Tearsheet) {
	store, err := history.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open run history")
		return
	}
	defer store.Close()

	if err := store.Record(source, sheet.Strategy); err != nil {
		log.Warn().Err(err).Msg("Failed to record run")
		return
	}
	log.Debug().Str("path", path).Msg("Recorded run history")
}

func serveSheet(cfg *config.Config, sheet *tearsheet.Tearsheet) {
	server, err := api.NewServer(api.Config{
		Host:  cfg.Server.Host,
		Port:  cfg.Server.Port,
		Sheet: sheet,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		log.Error().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop server gracefully")
		os.Exit(1)
	}
}
