package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"metrade/internal/backtest"
	"metrade/internal/config"
	"metrade/internal/data"
	"metrade/internal/indicators"
	"metrade/internal/logging"
	"metrade/internal/strategy"
	"metrade/internal/types"
)

const (
	// Application constants
	AppName           = "metrade"
	AppVersion        = "1.0.0"
	DefaultConfigPath = "./config.json"
)

var (
	// Command line flags
	configPath   = flag.String("config", DefaultConfigPath, "Path to configuration file")
	strategyPath = flag.String("strategy", "", "Path to strategy document (JSON, required)")
	dataDir      = flag.String("data", "", "Data directory (overrides config)")
	resultsDir   = flag.String("results", "", "Results directory (overrides config)")
	benchmark    = flag.String("benchmark", "", "Benchmark symbol (overrides config)")
	debugMode    = flag.Bool("debug", false, "Enable debug mode")
	version      = flag.Bool("version", false, "Show version information")
	help         = flag.Bool("help", false, "Show help information")
)

func init() {
	flag.Usage = printUsage
}

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}
	if *help {
		printUsage()
		os.Exit(0)
	}
	if *strategyPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -strategy is required")
		printUsage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration and the strategy document, backtests every symbol
// in the strategy's universe and writes the results.
func run() error {
	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *debugMode {
		cfg.App.Debug = true
		cfg.Logging.Level = "debug"
	}
	if *dataDir != "" {
		cfg.Backtest.DataDirectory = *dataDir
	}
	if *resultsDir != "" {
		cfg.Backtest.ResultsDirectory = *resultsDir
	}
	if *benchmark != "" {
		cfg.Backtest.BenchmarkSymbol = *benchmark
	}

	// Initialize logging
	logging.InitGlobalLogger(cfg.Logging)
	logger := logging.NewComponentLogger("main")
	logger.Infof("%s %s starting", AppName, AppVersion)

	// Load and compile the strategy document
	spec, err := strategy.LoadSpec(*strategyPath)
	if err != nil {
		return err
	}
	if spec.Costs.CommissionPerShare == 0 && spec.Costs.SlippageBps == 0 {
		spec.Costs.CommissionPerShare = cfg.Backtest.CommissionPerShare
		spec.Costs.SlippageBps = cfg.Backtest.SlippageBps
	}
	rules, err := strategy.Compile(spec, nil)
	if err != nil {
		return fmt.Errorf("failed to compile strategy: %w", err)
	}
	if ok, problems := strategy.NewValidator().Validate(rules); !ok {
		for _, p := range problems {
			logger.Errorf("Strategy validation: %s", p)
		}
		return fmt.Errorf("strategy validation failed: %d violations", len(problems))
	}

	start, end, err := parseTimeframe(spec.Timeframe)
	if err != nil {
		return err
	}

	// Load bar data and attach the indicator columns the strategy reads
	source := data.NewSource(cfg.Backtest.DataDirectory, logging.NewComponentLogger("data"))
	feeds := source.LoadUniverse(rules.Universe, start, end)
	for symbol, bars := range feeds {
		if err := indicators.Enrich(bars, rules.Columns()); err != nil {
			return fmt.Errorf("failed to compute indicators for %s: %w", symbol, err)
		}
	}

	benchmarkCurve := loadBenchmark(source, cfg, start, end, logger)

	// Run the batch
	ctx := context.Background()
	if cfg.Backtest.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Backtest.Timeout)
		defer cancel()
	}

	runner, err := backtest.NewRunner(rules, backtest.RunnerConfig{
		InitialCash:  cfg.Backtest.InitialCash,
		RiskFreeRate: cfg.Backtest.RiskFreeRate,
		Workers:      cfg.Backtest.Workers,
	}, logging.NewComponentLogger("runner"))
	if err != nil {
		return err
	}

	batch, err := runner.RunBatch(ctx, feeds, benchmarkCurve)
	if err != nil {
		return err
	}

	// Report and export
	for _, run := range batch.Runs {
		if !run.Success {
			logger.Warnf("%s: %s", run.Symbol, run.Error)
			continue
		}
		logger.LogPerformance(run.Symbol, run.Metrics.TotalReturn, run.Metrics.MaxDrawdown,
			run.Stats.TotalTrades, run.Metrics.Sharpe)
		if err := run.SaveResults(cfg.Backtest.ResultsDirectory, cfg.Backtest.ExportTrades, cfg.Backtest.ExportEquity); err != nil {
			return fmt.Errorf("failed to save results for %s: %w", run.Symbol, err)
		}
	}

	logger.Infof("Backtest finished: %d/%d symbols succeeded, results in %s",
		len(batch.Succeeded()), len(batch.Runs), cfg.Backtest.ResultsDirectory)
	return nil
}

// parseTimeframe converts the strategy document's date window to time bounds.
// Empty bounds mean the full data range.
func parseTimeframe(tf strategy.Timeframe) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if tf.Start != "" {
		start, err = time.Parse("2006-01-02", tf.Start)
		if err != nil {
			return start, end, fmt.Errorf("invalid timeframe start %q: %w", tf.Start, err)
		}
	}
	if tf.End != "" {
		end, err = time.Parse("2006-01-02", tf.End)
		if err != nil {
			return start, end, fmt.Errorf("invalid timeframe end %q: %w", tf.End, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("timeframe end %s before start %s", tf.End, tf.Start)
	}
	return start, end, nil
}

// loadBenchmark loads the benchmark curve when a benchmark symbol is
// configured. A missing benchmark degrades to metrics without excess return.
func loadBenchmark(source *data.Source, cfg *config.Config, start, end time.Time, logger *logging.Logger) types.EquityCurve {
	if cfg.Backtest.BenchmarkSymbol == "" {
		return nil
	}
	bars, err := source.Load(cfg.Backtest.BenchmarkSymbol, start, end)
	if err != nil {
		logger.Warnf("Benchmark %s unavailable: %v", cfg.Backtest.BenchmarkSymbol, err)
		return nil
	}
	return backtest.BenchmarkCurve(bars, cfg.Backtest.InitialCash)
}

// printUsage prints command line usage information
func printUsage() {
	fmt.Printf(`%s - %s

Usage: %s [options]

Options:
`, AppName, AppVersion, os.Args[0])
	flag.PrintDefaults()
	fmt.Printf(`
Examples:
  %s -strategy ./strategy.json                       # Run with default config
  %s -strategy ./strategy.json -config ./my.json     # Run with custom config
  %s -strategy ./strategy.json -benchmark SPY        # Compare against SPY
  %s -version                                        # Show version

Configuration:
  A configuration file will be created with default values if it doesn't exist.
  The default configuration file location is: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], DefaultConfigPath)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf(`%s %s

Go Version: %s
GOOS: %s
GOARCH: %s
`, AppName, AppVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
