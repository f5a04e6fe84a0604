package backtest

import (
	"math"
	"testing"
	"time"

	"metrade/internal/types"
)

func curveOf(start time.Time, values ...float64) types.EquityCurve {
	curve := make(types.EquityCurve, len(values))
	prev := 0.0
	for i, v := range values {
		ret := 0.0
		if i > 0 && prev != 0 {
			ret = v/prev - 1
		}
		curve[i] = types.EquitySample{
			Timestamp: start.AddDate(0, 0, i),
			Value:     v,
			Return:    ret,
		}
		prev = v
	}
	return curve
}

func TestDegenerateCurvesProduceZeros(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, curve := range map[string]types.EquityCurve{
		"empty":  nil,
		"single": curveOf(t0, 100_000),
	} {
		m := CalculateMetrics(curve, DefaultRiskFreeRate)
		if m.TotalReturn != 0 || m.CAGR != 0 || m.MaxDrawdown != 0 ||
			m.Sharpe != 0 || m.Sortino != 0 || m.Calmar != 0 {
			t.Fatalf("%s curve: want all-zero metrics, got %+v", name, m)
		}
	}
}

func TestTotalReturn(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := curveOf(t0, 100_000, 95_000, 112_000)
	got := TotalReturn(curve)
	if math.Abs(got-0.12) > 1e-12 {
		t.Fatalf("total return = %f, want 0.12", got)
	}
}

func TestCAGROverOneYear(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// Two samples exactly 365.25 days apart: one year, so CAGR equals the
	// total return.
	curve := types.EquityCurve{
		{Timestamp: t0, Value: 100_000},
		{Timestamp: t0.Add(time.Duration(365.25 * 24 * float64(time.Hour))), Value: 110_000},
	}
	got := CAGR(curve)
	if math.Abs(got-0.10) > 1e-9 {
		t.Fatalf("CAGR = %f, want 0.10", got)
	}
}

func TestCAGRFallsBackToSampleCount(t *testing.T) {
	// Undated samples: span is zero, so the rate is annualized over
	// len/252 trading days instead.
	curve := types.EquityCurve{
		{Value: 100_000},
		{Value: 110_000},
	}
	years := 2.0 / TradingDaysPerYear
	want := math.Pow(1.10, 1/years) - 1
	got := CAGR(curve)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("CAGR = %f, want %f", got, want)
	}
}

func TestMaxDrawdown(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	// Peak at 120k, trough at 90k afterwards: drawdown is -25%.
	curve := curveOf(t0, 100_000, 120_000, 105_000, 90_000, 110_000)
	got := MaxDrawdown(curve)
	if math.Abs(got-(-0.25)) > 1e-12 {
		t.Fatalf("max drawdown = %f, want -0.25", got)
	}
	if MaxDrawdown(curveOf(t0, 100, 110, 120)) != 0 {
		t.Fatal("monotonically rising curve must have zero drawdown")
	}
}

func TestSharpeZeroVolatility(t *testing.T) {
	// Constant returns have zero standard deviation: the ratio is defined
	// as zero rather than dividing by zero.
	returns := []float64{0.001, 0.001, 0.001, 0.001}
	if got := SharpeRatio(returns, DefaultRiskFreeRate); got != 0 {
		t.Fatalf("Sharpe with zero volatility = %f, want 0", got)
	}
	if got := SharpeRatio([]float64{0.01}, DefaultRiskFreeRate); got != 0 {
		t.Fatalf("Sharpe with a single return = %f, want 0", got)
	}
}

func TestSharpeSign(t *testing.T) {
	up := []float64{0.01, 0.02, 0.015, 0.03, 0.012}
	down := []float64{-0.01, -0.02, -0.015, -0.03, -0.012}
	if SharpeRatio(up, DefaultRiskFreeRate) <= 0 {
		t.Fatal("consistently positive excess returns must give a positive Sharpe")
	}
	if SharpeRatio(down, DefaultRiskFreeRate) >= 0 {
		t.Fatal("consistently negative excess returns must give a negative Sharpe")
	}
}

func TestSortinoRequiresDownsideSamples(t *testing.T) {
	// All returns above the daily risk-free rate: no downside to measure.
	returns := []float64{0.01, 0.02, 0.03, 0.04}
	if got := SortinoRatio(returns, DefaultRiskFreeRate); got != 0 {
		t.Fatalf("Sortino with no downside = %f, want 0", got)
	}
	mixed := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	if SortinoRatio(mixed, DefaultRiskFreeRate) <= 0 {
		t.Fatal("net-positive returns must give a positive Sortino")
	}
}

func TestCalmarGuardsZeroDrawdown(t *testing.T) {
	if got := CalmarRatio(0.15, 0); got != 0 {
		t.Fatalf("Calmar with zero drawdown = %f, want 0", got)
	}
	got := CalmarRatio(0.15, -0.10)
	if math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("Calmar = %f, want 1.5", got)
	}
}

func TestBenchmarkExcessReturn(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	strategyCurve := curveOf(t0, 100_000, 120_000)
	benchmark := curveOf(t0, 100_000, 105_000)

	m := CalculateMetricsWithBenchmark(strategyCurve, benchmark, DefaultRiskFreeRate)
	if !m.HasBenchmark {
		t.Fatal("HasBenchmark not set")
	}
	if math.Abs(m.ExcessReturn-0.15) > 1e-12 {
		t.Fatalf("excess return = %f, want 0.15", m.ExcessReturn)
	}
	if math.Abs(m.BenchmarkReturn-0.05) > 1e-12 {
		t.Fatalf("benchmark return = %f, want 0.05", m.BenchmarkReturn)
	}
}

func TestBenchmarkCurveNormalization(t *testing.T) {
	bars := mkBars("SPY", []float64{400, 440, 420})
	curve := BenchmarkCurve(bars, 100_000)
	if len(curve) != 3 {
		t.Fatalf("curve length = %d, want 3", len(curve))
	}
	if curve[0].Value != 100_000 {
		t.Fatalf("first value = %f, want initial cash", curve[0].Value)
	}
	if math.Abs(curve[1].Value-110_000) > 1e-9 {
		t.Fatalf("second value = %f, want 110000", curve[1].Value)
	}
	if BenchmarkCurve(nil, 100_000) != nil {
		t.Fatal("empty bars must yield a nil curve")
	}
}

func TestTradeStats(t *testing.T) {
	trades := []types.TradeRecord{
		{Side: types.OrderSideBuy},
		{Side: types.OrderSideSell, PnL: 500},
		{Side: types.OrderSideBuy},
		{Side: types.OrderSideSell, PnL: -200},
		{Side: types.OrderSideBuy},
		{Side: types.OrderSideSell, PnL: 300},
	}
	stats := ComputeTradeStats(trades)
	if stats.TotalTrades != 3 {
		t.Fatalf("total trades = %d, want 3 (closed round trips)", stats.TotalTrades)
	}
	if stats.WinningTrades != 2 || stats.LosingTrades != 1 {
		t.Fatalf("win/loss = %d/%d, want 2/1", stats.WinningTrades, stats.LosingTrades)
	}
	if math.Abs(stats.WinRate-2.0/3.0) > 1e-12 {
		t.Fatalf("win rate = %f, want 2/3", stats.WinRate)
	}
	if math.Abs(stats.ProfitFactor-800.0/200.0) > 1e-12 {
		t.Fatalf("profit factor = %f, want 4", stats.ProfitFactor)
	}
	if stats.LargestWin != 500 || stats.LargestLoss != -200 {
		t.Fatalf("largest win/loss = %f/%f", stats.LargestWin, stats.LargestLoss)
	}
}
