package backtest

import (
	"math"

	"metrade/internal/types"
)

// Metrics defaults
const (
	DefaultRiskFreeRate = 0.02
	TradingDaysPerYear  = 252
	DaysPerYear         = 365.25
)

// MetricsResult holds the risk/return statistics derived from an equity
// curve. Every ratio guards its divisor: a degenerate curve produces zeros,
// never NaN and never a panic.
type MetricsResult struct {
	TotalReturn  float64 `json:"total_return"`
	CAGR         float64 `json:"cagr"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	Calmar       float64 `json:"calmar"`
	ExcessReturn float64 `json:"excess_return,omitempty"`
	HasBenchmark bool    `json:"has_benchmark,omitempty"`

	// Benchmark's own statistics over the same window, for side-by-side
	// reporting. Zero unless HasBenchmark is set.
	BenchmarkReturn      float64 `json:"benchmark_return,omitempty"`
	BenchmarkCAGR        float64 `json:"benchmark_cagr,omitempty"`
	BenchmarkMaxDrawdown float64 `json:"benchmark_max_drawdown,omitempty"`
}

// CalculateMetrics derives the performance statistics from an equity curve
// using the given annual risk-free rate.
func CalculateMetrics(curve types.EquityCurve, riskFreeRate float64) MetricsResult {
	returns := curve.Returns()
	cagr := CAGR(curve)
	maxDD := MaxDrawdown(curve)
	return MetricsResult{
		TotalReturn: TotalReturn(curve),
		CAGR:        cagr,
		MaxDrawdown: maxDD,
		Sharpe:      SharpeRatio(returns, riskFreeRate),
		Sortino:     SortinoRatio(returns, riskFreeRate),
		Calmar:      CalmarRatio(cagr, maxDD),
	}
}

// CalculateMetricsWithBenchmark additionally reports the strategy's excess
// total return over a benchmark curve normalized to the same starting
// capital.
func CalculateMetricsWithBenchmark(curve, benchmark types.EquityCurve, riskFreeRate float64) MetricsResult {
	result := CalculateMetrics(curve, riskFreeRate)
	result.BenchmarkReturn = TotalReturn(benchmark)
	result.BenchmarkCAGR = CAGR(benchmark)
	result.BenchmarkMaxDrawdown = MaxDrawdown(benchmark)
	result.ExcessReturn = result.TotalReturn - result.BenchmarkReturn
	result.HasBenchmark = true
	return result
}

// BenchmarkCurve builds an equity curve from a benchmark instrument's bars
// by normalizing its close series to the given starting capital.
func BenchmarkCurve(bars []types.Bar, initialCash float64) types.EquityCurve {
	if len(bars) == 0 || bars[0].Close == 0 {
		return nil
	}
	curve := make(types.EquityCurve, 0, len(bars))
	prev := 0.0
	for i, bar := range bars {
		value := bar.Close / bars[0].Close * initialCash
		ret := 0.0
		if i > 0 && prev != 0 {
			ret = value/prev - 1
		}
		curve = append(curve, types.EquitySample{
			Timestamp: bar.Timestamp,
			Value:     value,
			Cash:      0,
			CumPnL:    value - initialCash,
			Return:    ret,
		})
		prev = value
	}
	return curve
}

// TotalReturn is (last - first) / first; 0 for fewer than 2 samples.
func TotalReturn(curve types.EquityCurve) float64 {
	if len(curve) < 2 {
		return 0
	}
	first := curve[0].Value
	if first == 0 {
		return 0
	}
	return (curve[len(curve)-1].Value - first) / first
}

// CAGR is the compound annual growth rate over the curve's calendar span.
// When the samples carry no dates the span falls back to sample count over
// 252 trading days.
func CAGR(curve types.EquityCurve) float64 {
	if len(curve) < 2 {
		return 0
	}
	first := curve[0].Value
	last := curve[len(curve)-1].Value
	if first <= 0 {
		return 0
	}

	var years float64
	if span := curve.Span(); span > 0 {
		years = span.Hours() / 24 / DaysPerYear
	} else {
		years = float64(len(curve)) / TradingDaysPerYear
	}
	if years <= 0 {
		return 0
	}
	return math.Pow(last/first, 1/years) - 1
}

// MaxDrawdown is the worst decline from a running peak, as a non-positive
// fraction.
func MaxDrawdown(curve types.EquityCurve) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Value
	maxDD := 0.0
	for _, sample := range curve {
		if sample.Value > peak {
			peak = sample.Value
		}
		if peak > 0 {
			dd := (sample.Value - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio annualizes mean excess daily return over return volatility.
// The annual risk-free rate converts to daily via (1+rf)^(1/252)-1.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := dailyRiskFree(riskFreeRate)

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	std := stdDev(excess)
	if std == 0 {
		return 0
	}
	return mean(excess) / std * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio is Sharpe with volatility measured over sub-risk-free returns
// only; 0 when there are not enough downside samples to measure.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := dailyRiskFree(riskFreeRate)

	var downside []float64
	for _, r := range returns {
		if r < dailyRF {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}
	downsideStd := stdDev(downside)
	if downsideStd == 0 {
		return 0
	}
	return (mean(returns) - dailyRF) / downsideStd * math.Sqrt(TradingDaysPerYear)
}

// CalmarRatio is CAGR over the magnitude of max drawdown; 0 when there was
// no drawdown.
func CalmarRatio(cagr, maxDrawdown float64) float64 {
	dd := math.Abs(maxDrawdown)
	if dd == 0 {
		return 0
	}
	return cagr / dd
}

func dailyRiskFree(annual float64) float64 {
	return math.Pow(1+annual, 1.0/TradingDaysPerYear) - 1
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation, matching the rolling stddev the
// indicator columns use.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
