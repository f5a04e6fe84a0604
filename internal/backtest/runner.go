package backtest

import (
	"context"
	"fmt"
	"sync"

	"metrade/internal/logging"
	"metrade/internal/strategy"
	"metrade/internal/types"
)

// RunnerConfig configures a batch of independent per-symbol runs.
type RunnerConfig struct {
	InitialCash  float64
	RiskFreeRate float64
	// Workers bounds the number of concurrent runs; each run owns its
	// position, ledger and curve, so runs never share mutable state.
	Workers int
}

// Runner executes a compiled rule set over every symbol in its universe.
// Runs are independent (each symbol gets the full initial cash), so a batch
// is embarrassingly parallel; a symbol with no data fails alone without
// taking the batch down.
type Runner struct {
	rules  *strategy.RuleSet
	config RunnerConfig
	logger *logging.Logger
}

// BatchResult holds one Run per universe symbol, in universe order.
type BatchResult struct {
	Strategy string `json:"strategy"`
	Runs     []*Run `json:"runs"`
}

// Succeeded returns the successful runs.
func (b *BatchResult) Succeeded() []*Run {
	var out []*Run
	for _, r := range b.Runs {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

// NewRunner creates a batch runner for the rule set.
func NewRunner(rules *strategy.RuleSet, config RunnerConfig, logger *logging.Logger) (*Runner, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule set is required")
	}
	if config.InitialCash <= 0 {
		return nil, fmt.Errorf("initial cash must be positive, got %v", config.InitialCash)
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.RiskFreeRate == 0 {
		config.RiskFreeRate = DefaultRiskFreeRate
	}
	if logger == nil {
		logger = logging.NewComponentLogger("runner")
	}
	return &Runner{rules: rules, config: config, logger: logger}, nil
}

// RunBatch backtests every symbol in the rule set's universe against its bar
// sequence from bars. A missing or empty sequence records a failed run for
// that symbol. The batch as a whole errors only when no symbol had data.
// The context is checked between runs; a run in flight is never interrupted
// (runs are short and bounded by data length).
func (r *Runner) RunBatch(ctx context.Context, bars map[string][]types.Bar, benchmark types.EquityCurve) (*BatchResult, error) {
	result := &BatchResult{
		Strategy: r.rules.Name,
		Runs:     make([]*Run, len(r.rules.Universe)),
	}
	if len(r.rules.Universe) == 0 {
		return nil, fmt.Errorf("strategy %s has an empty universe", r.rules.Name)
	}

	sem := make(chan struct{}, r.config.Workers)
	var wg sync.WaitGroup

	var cancelled error
	for i, symbol := range r.rules.Universe {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			result.Runs[i] = r.runSymbol(symbol, bars[symbol], benchmark)
		}(i, symbol)
	}
	// Drain in-flight runs before returning so nothing writes into the
	// result slice after the caller sees it.
	wg.Wait()

	if cancelled != nil {
		return nil, fmt.Errorf("batch cancelled: %w", cancelled)
	}

	if len(result.Succeeded()) == 0 {
		return result, fmt.Errorf("no data feeds available for strategy %s", r.rules.Name)
	}
	return result, nil
}

// runSymbol executes one symbol's run and attaches its metrics.
func (r *Runner) runSymbol(symbol string, bars []types.Bar, benchmark types.EquityCurve) *Run {
	if len(bars) == 0 {
		r.logger.Warnf("No data for %s, skipping", symbol)
		return &Run{
			Symbol:  symbol,
			Success: false,
			Error:   (&DataError{Symbol: symbol, Reason: "no bars in range"}).Error(),
		}
	}

	engine, err := NewEngine(r.rules, r.config.InitialCash, r.logger)
	if err != nil {
		return &Run{Symbol: symbol, Success: false, Error: err.Error()}
	}

	run, err := engine.Run(symbol, bars)
	if err != nil {
		r.logger.Errorf("Run failed for %s: %v", symbol, err)
		return &Run{Symbol: symbol, Success: false, Error: err.Error()}
	}

	if benchmark != nil {
		run.Metrics = CalculateMetricsWithBenchmark(run.Equity, benchmark, r.config.RiskFreeRate)
	} else {
		run.Metrics = CalculateMetrics(run.Equity, r.config.RiskFreeRate)
	}

	r.logger.Infof("Backtest completed for %s: %d trades, return %.2f%%",
		symbol, run.Stats.TotalTrades, run.Metrics.TotalReturn*100)
	return run
}
