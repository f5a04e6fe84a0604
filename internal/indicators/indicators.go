// Package indicators computes technical indicator series over ordered price
// data. Every function produces exactly one output per input value, NaN-padded
// over the warm-up window, so the engine can zip indicator series with bars
// positionally.
package indicators

import (
	"math"

	"github.com/cinar/indicator"
)

// Default indicator parameters
const (
	DefaultRSIPeriod       = 14
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
	DefaultATRPeriod       = 14
)

// SMA calculates the simple moving average over the trailing period values.
// The first period-1 outputs are NaN.
func SMA(period int, values []float64) []float64 {
	if period < 1 {
		return nanSeries(len(values))
	}
	result := indicator.Sma(period, values)
	maskWarmup(result, period-1)
	return result
}

// EMA calculates the exponential moving average with smoothing factor
// 2/(period+1), seeded by the first value. There is no warm-up NaN window
// beyond index 0.
func EMA(period int, values []float64) []float64 {
	if period < 1 {
		return nanSeries(len(values))
	}
	return indicator.Ema(period, values)
}

// RSI calculates the relative strength index from average gain and average
// loss over the trailing period bars. RSI = 100 - 100/(1+RS) with
// RS = avg_gain/avg_loss; when the average loss is exactly zero the value is
// defined as 100 rather than dividing by zero. The first period outputs are
// NaN (one bar for the price delta plus period-1 for the averages).
func RSI(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	if period < 1 || len(values) < period+1 {
		return result
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			result[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		result[i] = 100 - 100/(1+rs)
	}
	return result
}

// MACD calculates the MACD line EMA(fast)-EMA(slow), its EMA(signalPeriod)
// signal line, and the macd-signal histogram. Like EMA it has no NaN window.
func MACD(fast, slow, signalPeriod int, values []float64) (macd, signal, histogram []float64) {
	fastEMA := EMA(fast, values)
	slowEMA := EMA(slow, values)

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signal = EMA(signalPeriod, macd)

	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = macd[i] - signal[i]
	}
	return macd, signal, histogram
}

// Bollinger calculates Bollinger Bands: middle = SMA(period), upper/lower =
// middle +/- k standard deviations over the same window. Sample standard
// deviation, matching the rolling stddev the indicator columns are built with
// elsewhere. NaN until the SMA warm-up elapses.
func Bollinger(period int, k float64, values []float64) (upper, middle, lower []float64) {
	middle = SMA(period, values)
	std := rollingStdDev(period, values)

	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return upper, middle, lower
}

// ATR calculates the average true range from high/low/close series.
// The warm-up window is NaN-masked for alignment with the other columns.
func ATR(period int, highs, lows, closes []float64) []float64 {
	if period < 1 || len(closes) == 0 {
		return nanSeries(len(closes))
	}
	_, atr := indicator.Atr(period, highs, lows, closes)
	maskWarmup(atr, period-1)
	return atr
}

// rollingStdDev computes the sample standard deviation over a trailing
// window, NaN for the first period-1 points.
func rollingStdDev(period int, values []float64) []float64 {
	result := nanSeries(len(values))
	if period < 2 {
		return result
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(period - 1)
		result[i] = math.Sqrt(variance)
	}
	return result
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func maskWarmup(series []float64, n int) {
	if n > len(series) {
		n = len(series)
	}
	for i := 0; i < n; i++ {
		series[i] = math.NaN()
	}
}
