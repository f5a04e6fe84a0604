// Package backtest replays historical bars through a compiled strategy rule
// set and produces a trade ledger, an equity curve and performance metrics.
package backtest

import (
	"fmt"

	"metrade/internal/logging"
	"metrade/internal/strategy"
	"metrade/internal/types"
)

// Engine simulates one instrument through the bar sequence. State is
// Flat -> Long -> Flat; there is no short side in this model and no
// pyramiding: entry signals while a position is open are ignored.
//
// Given identical bars, indicator values and rule set, two runs produce
// byte-identical ledgers and equity curves: nothing in the loop reads the
// clock or any other ambient state.
type Engine struct {
	rules       *strategy.RuleSet
	initialCash float64
	logger      *logging.Logger
}

// NewEngine creates an engine for one run of the given rule set.
func NewEngine(rules *strategy.RuleSet, initialCash float64, logger *logging.Logger) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule set is required")
	}
	if initialCash <= 0 {
		return nil, fmt.Errorf("initial cash must be positive, got %v", initialCash)
	}
	if logger == nil {
		logger = logging.NewComponentLogger("engine")
	}
	return &Engine{
		rules:       rules,
		initialCash: initialCash,
		logger:      logger,
	}, nil
}

// Run executes the per-bar loop over a time-ordered bar sequence for a single
// instrument and returns the run's ledger and equity curve. An empty sequence
// yields a zero-trade run with a single degenerate equity point at initial
// cash; out-of-order bars are the only input this method rejects.
func (e *Engine) Run(symbol string, bars []types.Bar) (*Run, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return nil, &DataError{
				Symbol: symbol,
				Reason: fmt.Sprintf("bars not strictly ordered at index %d", i),
			}
		}
	}

	run := &Run{
		Symbol:     symbol,
		Success:    true,
		StartValue: e.initialCash,
	}

	if len(bars) == 0 {
		run.EndValue = e.initialCash
		run.Equity = types.EquityCurve{{
			Value: e.initialCash,
			Cash:  e.initialCash,
		}}
		return run, nil
	}

	cash := e.initialCash
	var position *types.Position
	prevValue := 0.0
	slip := e.rules.Costs.SlippageFraction()
	commission := e.rules.Costs.CommissionPerShare
	entryReason := e.rules.EntryReason()

	for i, bar := range bars {
		if position == nil {
			if evalEntry(e.rules.Entry, bar) {
				fillPrice := bar.Close * (1 + slip)
				size := e.orderSize(cash, fillPrice)
				if size > 0 {
					order := types.NewOrder(types.OrderSideBuy, size, entryReason)
					fee := size * commission
					gross := size * fillPrice
					valueAtFill := cash
					cash -= gross + fee

					position = types.NewPosition(symbol, size, fillPrice, bar.Timestamp, i)
					position.FeePaid = fee

					run.Trades = append(run.Trades, types.TradeRecord{
						Timestamp:  bar.Timestamp,
						Symbol:     symbol,
						Side:       order.Side,
						Size:       order.Size,
						FillPrice:  fillPrice,
						GrossValue: gross,
						Commission: fee,
						Allocation: allocation(gross, valueAtFill),
						Reason:     order.Reason,
					})
					e.logger.LogTrade(symbol, string(order.Side), size, fillPrice, fee)
				}
			}
		} else {
			for _, exit := range e.rules.Exits {
				if !exit.Triggered(position.EntryPrice, bar.Close) {
					continue
				}
				fillPrice := bar.Close * (1 - slip)
				order := types.NewOrder(types.OrderSideSell, position.Size, exit.Reason())
				size := order.Size
				fee := size * commission
				proceeds := size * fillPrice
				cash += proceeds - fee

				entryCost := position.EntryPrice * size
				pnl := proceeds - entryCost - position.FeePaid - fee
				pnlPct := 0.0
				if entryCost != 0 {
					pnlPct = pnl / entryCost
				}

				run.Trades = append(run.Trades, types.TradeRecord{
					Timestamp:   bar.Timestamp,
					Symbol:      symbol,
					Side:        order.Side,
					Size:        size,
					FillPrice:   fillPrice,
					GrossValue:  proceeds,
					Commission:  fee,
					PnL:         pnl,
					PnLPercent:  pnlPct,
					HoldingBars: position.HoldingBars(i),
					Allocation:  allocation(proceeds, cash),
					Reason:      order.Reason,
				})
				e.logger.LogTrade(symbol, string(order.Side), size, fillPrice, fee)

				position = nil
				break
			}
		}

		value := cash
		if position != nil {
			value += position.MarketValue(bar.Close)
		}
		periodReturn := 0.0
		if i > 0 && prevValue != 0 {
			periodReturn = value/prevValue - 1
		}
		run.Equity = append(run.Equity, types.EquitySample{
			Timestamp: bar.Timestamp,
			Value:     value,
			Cash:      cash,
			CumPnL:    value - e.initialCash,
			Return:    periodReturn,
		})
		prevValue = value
	}

	run.EndValue = run.Equity[len(run.Equity)-1].Value
	run.Stats = ComputeTradeStats(run.Trades)
	return run, nil
}

// orderSize computes the share count for a new entry against current cash.
// Sizing accounts for per-share commission so a full-fraction order can never
// drive cash negative. A fixed-share order that cannot be paid for in full is
// not filled at all.
func (e *Engine) orderSize(cash, fillPrice float64) float64 {
	costPerShare := fillPrice + e.rules.Costs.CommissionPerShare
	if costPerShare <= 0 {
		return 0
	}
	switch e.rules.Sizing.Kind {
	case strategy.SizePercentOfCash:
		return cash * e.rules.Sizing.Value / costPerShare
	case strategy.SizeFixedShares:
		size := e.rules.Sizing.Value
		if size*costPerShare > cash {
			return 0
		}
		return size
	}
	return 0
}

// evalEntry applies AND semantics over the entry conditions, in declaration
// order. The short-circuit is an efficiency, not a semantic: conditions have
// no side effects.
func evalEntry(conditions []strategy.Condition, bar types.Bar) bool {
	if len(conditions) == 0 {
		return false
	}
	for _, c := range conditions {
		if !c.Evaluate(bar) {
			return false
		}
	}
	return true
}

func allocation(gross, portfolioValue float64) float64 {
	if portfolioValue == 0 {
		return 0
	}
	return gross / portfolioValue
}
