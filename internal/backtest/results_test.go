package backtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"metrade/internal/types"
)

func TestSaveResultsWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	run := &Run{
		Symbol:     "AAPL",
		Success:    true,
		StartValue: 100_000,
		EndValue:   104_000,
		Trades: []types.TradeRecord{
			{Timestamp: t0, Symbol: "AAPL", Side: types.OrderSideBuy, Size: 100, FillPrice: 185, GrossValue: 18500, Reason: "entry: sma_50 > sma_200"},
			{Timestamp: t0.AddDate(0, 0, 5), Symbol: "AAPL", Side: types.OrderSideSell, Size: 100, FillPrice: 225, GrossValue: 22500, PnL: 4000, HoldingBars: 5, Reason: "take profit"},
		},
		Equity: types.EquityCurve{
			{Timestamp: t0, Value: 100_000, Cash: 81_500},
			{Timestamp: t0.AddDate(0, 0, 5), Value: 104_000, Cash: 104_000},
		},
	}
	run.Stats = ComputeTradeStats(run.Trades)

	if err := run.SaveResults(dir, true, true); err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var jsonFile, tradesFile, equityFile string
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), "_trades.csv"):
			tradesFile = e.Name()
		case strings.HasSuffix(e.Name(), "_equity.csv"):
			equityFile = e.Name()
		case strings.HasSuffix(e.Name(), ".json"):
			jsonFile = e.Name()
		}
	}
	if jsonFile == "" || tradesFile == "" || equityFile == "" {
		t.Fatalf("missing artifacts, got %v", entries)
	}
	if !strings.HasPrefix(jsonFile, "AAPL_") {
		t.Fatalf("summary filename %q not prefixed with symbol", jsonFile)
	}

	data, err := os.ReadFile(filepath.Join(dir, jsonFile))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded Run
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if decoded.Symbol != "AAPL" || decoded.EndValue != 104_000 || len(decoded.Trades) != 2 {
		t.Fatalf("summary round trip lost data: %+v", decoded)
	}

	trades, err := os.ReadFile(filepath.Join(dir, tradesFile))
	if err != nil {
		t.Fatalf("read trades: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(trades)), "\n")
	if len(lines) != 3 {
		t.Fatalf("trades CSV has %d lines, want header + 2 records", len(lines))
	}
	if !strings.Contains(lines[2], "take profit") {
		t.Fatalf("SELL row missing reason: %s", lines[2])
	}
}

func TestSaveResultsSkipsDisabledExports(t *testing.T) {
	dir := t.TempDir()
	run := &Run{Symbol: "MSFT", Success: true, StartValue: 1000, EndValue: 1000}

	if err := run.SaveResults(dir, false, false); err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".json") {
		t.Fatalf("expected only the JSON summary, got %v", entries)
	}
}
