package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"metrade/internal/types"
)

// DataError reports a missing or unusable bar sequence for an instrument.
// It fails that instrument's run without crashing a multi-instrument batch.
type DataError struct {
	Symbol string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error for %s: %s", e.Symbol, e.Reason)
}

// Run holds everything one instrument's backtest produced. On failure only
// Symbol, Success and Error are meaningful.
type Run struct {
	Symbol     string             `json:"symbol"`
	Success    bool               `json:"success"`
	Error      string             `json:"error,omitempty"`
	StartValue float64            `json:"start_value"`
	EndValue   float64            `json:"end_value"`
	Trades     []types.TradeRecord `json:"trades"`
	Equity     types.EquityCurve  `json:"equity_curve"`
	Metrics    MetricsResult      `json:"metrics"`
	Stats      TradeStats         `json:"trade_stats"`
}

// TradeStats summarizes the trade ledger. Wins and losses are counted over
// closing SELL records only; BUY legs carry no realized P&L.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
}

// ComputeTradeStats rolls the ledger up into summary statistics.
func ComputeTradeStats(trades []types.TradeRecord) TradeStats {
	var stats TradeStats
	var totalWin, totalLoss float64

	for _, trade := range trades {
		if !trade.IsExit() {
			continue
		}
		stats.TotalTrades++
		if trade.PnL > 0 {
			stats.WinningTrades++
			totalWin += trade.PnL
			if trade.PnL > stats.LargestWin {
				stats.LargestWin = trade.PnL
			}
		} else {
			stats.LosingTrades++
			totalLoss += -trade.PnL
			if trade.PnL < stats.LargestLoss {
				stats.LargestLoss = trade.PnL
			}
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = totalWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = totalLoss / float64(stats.LosingTrades)
	}
	if totalLoss > 0 {
		stats.ProfitFactor = totalWin / totalLoss
	}
	return stats
}

// SaveResults writes the run's JSON summary plus optional trade and equity
// CSV exports into dir. Filenames are prefixed with the symbol and the run
// timestamp.
func (r *Run) SaveResults(dir string, exportTrades, exportEquity bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	base := fmt.Sprintf("%s_%s", r.Symbol, time.Now().Format("20060102_150405"))

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if exportTrades {
		if err := r.exportTradesCSV(filepath.Join(dir, base+"_trades.csv")); err != nil {
			return err
		}
	}
	if exportEquity {
		if err := r.exportEquityCSV(filepath.Join(dir, base+"_equity.csv")); err != nil {
			return err
		}
	}
	return nil
}

// exportTradesCSV writes the trade ledger to CSV.
func (r *Run) exportTradesCSV(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Timestamp", "Symbol", "Side", "Size", "FillPrice", "GrossValue", "Commission", "PnL", "PnLPercent", "HoldingBars", "Allocation", "Reason"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trade := range r.Trades {
		record := []string{
			trade.Timestamp.Format(time.RFC3339),
			trade.Symbol,
			string(trade.Side),
			fmt.Sprintf("%.6f", trade.Size),
			fmt.Sprintf("%.4f", trade.FillPrice),
			fmt.Sprintf("%.2f", trade.GrossValue),
			fmt.Sprintf("%.4f", trade.Commission),
			fmt.Sprintf("%.4f", trade.PnL),
			fmt.Sprintf("%.6f", trade.PnLPercent),
			fmt.Sprintf("%d", trade.HoldingBars),
			fmt.Sprintf("%.6f", trade.Allocation),
			trade.Reason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// exportEquityCSV writes the equity curve to CSV.
func (r *Run) exportEquityCSV(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create equity file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Timestamp", "Value", "Cash", "CumPnL", "Return"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range r.Equity {
		record := []string{
			sample.Timestamp.Format(time.RFC3339),
			fmt.Sprintf("%.2f", sample.Value),
			fmt.Sprintf("%.2f", sample.Cash),
			fmt.Sprintf("%.2f", sample.CumPnL),
			fmt.Sprintf("%.8f", sample.Return),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
