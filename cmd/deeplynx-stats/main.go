// Package main provides the CLI entry point for the Deep Lynx statistics
// client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jdpooleparty/deeplynx-stats/internal/config"
	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
	"github.com/jdpooleparty/deeplynx-stats/internal/generator"
	"github.com/jdpooleparty/deeplynx-stats/internal/logger"
	"github.com/jdpooleparty/deeplynx-stats/internal/metrics"
	"github.com/jdpooleparty/deeplynx-stats/internal/report"
	"github.com/jdpooleparty/deeplynx-stats/internal/stats"
	"github.com/jdpooleparty/deeplynx-stats/internal/workflow"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Exit codes, one per failure stage.
const (
	exitOK = iota
	exitConfig
	exitQuery
	exitDataShape
)

// CLI flags
var (
	metricSetPath  string
	timeout        time.Duration
	lotQPS         float64
	outputFormat   string
	outputFile     string
	prometheusAddr string
	maxLotDetails  int
	dryRun         bool
	validate       bool
	verbose        bool
	showVersion    bool
)

func init() {
	flag.StringVar(&metricSetPath, "metric-set", "", "Path to a YAML metric-set file (defaults to the built-in Product/Lot sets)")
	flag.DurationVar(&timeout, "timeout", 0, "Override the HTTP request timeout (e.g., 10s)")
	flag.Float64Var(&lotQPS, "lot-qps", 0, "Override the per-lot query rate limit (0 = unlimited)")
	flag.StringVar(&outputFormat, "output", "console", "Output format: console, json, or console,json")
	flag.StringVar(&outputFile, "output-file", "", "Write the JSON report to this file instead of stdout")
	flag.StringVar(&prometheusAddr, "prometheus", "", "Serve Prometheus metrics on this address (e.g., :9090)")
	flag.IntVar(&maxLotDetails, "max-lot-details", 25, "Maximum lot detail rows in console output (0 = all)")
	flag.BoolVar(&dryRun, "dry-run", false, "Run against synthetic records instead of a live instance")
	flag.BoolVar(&validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&verbose, "v", false, "Enable verbose output (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Deep Lynx Statistics - Product and Lot record summary tool

USAGE:
    deeplynx-stats [options]

DESCRIPTION:
    Authenticates to a Deep Lynx instance, queries Product and Lot records
    in one container, and prints summary statistics (counts, sums, means,
    distinct-value breakdowns).

ENVIRONMENT:
    DEEP_LYNX_URL             Base URL of the instance (default http://localhost:8090)
    DEEP_LYNX_CONTAINER_ID    Integer container ID (required)
    DEEP_LYNX_API_KEY         API key (required)
    DEEP_LYNX_API_SECRET      API secret (required)
    DEEP_LYNX_TIMEOUT         HTTP request timeout (default 30s)
    DEEP_LYNX_LOT_QPS         Per-lot query rate limit (default unlimited)
    DEEP_LYNX_LOG_LEVEL       debug, info, warn, error (default info)
    DEEP_LYNX_LOG_FORMAT      console or json (default console)

    A .env file in the working directory is loaded when present.

OPTIONS:
    -metric-set <path>      YAML metric-set file overriding the built-in sets
    -timeout <dur>          Override the HTTP request timeout
    -lot-qps <n>            Override the per-lot query rate limit
    -output <format>        console, json, or console,json
    -output-file <path>     Write the JSON report to a file
    -prometheus <addr>      Serve Prometheus metrics (e.g., :9090)
    -max-lot-details <n>    Cap console lot detail rows (0 = all)
    -dry-run                Use synthetic records, no live instance needed
    -validate               Validate configuration and exit
    -verbose, -v            Enable verbose output
    -version                Show version information

EXAMPLES:
    # Query the configured container and print a summary
    deeplynx-stats

    # Machine-readable report
    deeplynx-stats -output json -output-file report.json

    # Exercise the pipeline without a Deep Lynx instance
    deeplynx-stats -dry-run

    # Custom aggregation
    deeplynx-stats -metric-set metricsets.yaml

EXIT CODES:
    0  success
    1  configuration error
    2  query error
    3  data shape error
`)
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if showVersion {
		printVersion()
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, cfg, code := setup()
	if code != exitOK {
		return code
	}
	defer func() { _ = log.Sync() }()

	if validate {
		if cfg == nil {
			fmt.Fprintln(os.Stderr, "No configuration loaded.")
			return exitConfig
		}
		fmt.Printf("Configuration is valid.\n")
		fmt.Printf("  URL:          %s\n", cfg.URL)
		fmt.Printf("  Container ID: %d\n", cfg.ContainerID)
		fmt.Printf("  Timeout:      %s\n", cfg.Timeout)
		return exitOK
	}

	runnerOpts := []workflow.Option{workflow.WithLogger(log)}
	if cfg != nil {
		runnerOpts = append(runnerOpts, workflow.WithLotQPS(cfg.LotQPS))
	}

	if metricSetPath != "" {
		sets, err := stats.LoadMetricSets(metricSetPath)
		if err != nil {
			log.Error("loading metric sets failed", zap.Error(err))
			return exitConfig
		}
		runnerOpts = append(runnerOpts, workflow.WithMetricSets(sets))
	}

	var exporter *metrics.Exporter
	if prometheusAddr != "" {
		exporter = metrics.NewExporter()
		if err := exporter.Serve(prometheusAddr); err != nil {
			log.Error("starting metrics endpoint failed", zap.Error(err))
			return exitConfig
		}
		defer func() { _ = exporter.Shutdown(context.Background()) }()
		log.Info("metrics endpoint listening", zap.String("addr", exporter.Addr()))
	}

	querier, code := buildQuerier(cfg, log, exporter)
	if code != exitOK {
		return code
	}

	result, err := workflow.New(querier, runnerOpts...).Run(ctx)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return exitCode(err)
	}

	if err := writeReports(result); err != nil {
		log.Error("writing report failed", zap.Error(err))
		return exitConfig
	}
	return exitOK
}

// setup loads configuration and builds the logger. Dry runs work without
// any environment configured.
func setup() (*zap.Logger, *config.Config, int) {
	logCfg := config.LogConfig{Level: "info", Format: "console"}
	if verbose {
		logCfg.Level = "debug"
	}

	cfg, err := config.Load()
	if err != nil {
		if dryRun {
			return logger.New(logCfg), nil, exitOK
		}
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return nil, nil, exitConfig
	}

	if !verbose {
		logCfg = cfg.Log
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if lotQPS > 0 {
		cfg.LotQPS = lotQPS
	}
	return logger.New(logCfg), cfg, exitOK
}

// buildQuerier picks the record source: a live client, or the sandbox for
// dry runs.
func buildQuerier(cfg *config.Config, log *zap.Logger, exporter *metrics.Exporter) (workflow.Querier, int) {
	if dryRun {
		log.Info("dry run: using synthetic records")
		return generator.NewSandbox(0), exitOK
	}

	opts := []deeplynx.Option{deeplynx.WithLogger(log)}
	if exporter != nil {
		opts = append(opts, deeplynx.WithObserver(exporter))
	}
	client, err := deeplynx.NewClient(cfg, opts...)
	if err != nil {
		log.Error("creating client failed", zap.Error(err))
		return nil, exitConfig
	}
	return client, exitOK
}

// writeReports renders the result in the requested formats.
func writeReports(result *workflow.Result) error {
	formats := strings.Split(outputFormat, ",")
	for _, format := range formats {
		switch strings.TrimSpace(format) {
		case "console", "":
			console := &report.Console{Writer: os.Stdout, MaxLotDetails: maxLotDetails}
			if err := console.Write(result); err != nil {
				return err
			}
		case "json":
			out := os.Stdout
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := report.WriteJSON(out, result, version); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
	}
	return nil
}

// exitCode maps a run failure to the stage-specific exit code.
func exitCode(err error) int {
	var cfgErr *config.Error
	var queryErr *deeplynx.QueryError
	var shapeErr *stats.DataShapeError

	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &queryErr):
		return exitQuery
	case errors.As(err, &shapeErr):
		return exitDataShape
	default:
		return exitConfig
	}
}

func printVersion() {
	fmt.Printf("deeplynx-stats version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}
