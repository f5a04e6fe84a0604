package types

import (
	"time"
)

// EquitySample represents the portfolio state at the close of one bar. The
// ordered sequence of samples is the equity curve, the sole input to the
// metrics engine.
type EquitySample struct {
	Timestamp time.Time `json:"timestamp"`
	// Value is total portfolio value: cash plus open position marked at the
	// bar's close.
	Value float64 `json:"value"`
	Cash  float64 `json:"cash"`
	// CumPnL is the cumulative profit/loss since the start of the run.
	CumPnL float64 `json:"cum_pnl"`
	// Return is the single-period return versus the previous sample; 0 on the
	// first sample.
	Return float64 `json:"return"`
}

// EquityCurve is a time-ordered sequence of equity samples.
type EquityCurve []EquitySample

// Returns extracts the per-period return series, dropping the leading sample.
func (c EquityCurve) Returns() []float64 {
	if len(c) < 2 {
		return nil
	}
	out := make([]float64, 0, len(c)-1)
	for _, s := range c[1:] {
		out = append(out, s.Return)
	}
	return out
}

// Values extracts the portfolio value series.
func (c EquityCurve) Values() []float64 {
	out := make([]float64, len(c))
	for i, s := range c {
		out[i] = s.Value
	}
	return out
}

// Span returns the calendar distance between the first and last samples.
func (c EquityCurve) Span() time.Duration {
	if len(c) < 2 {
		return 0
	}
	return c[len(c)-1].Timestamp.Sub(c[0].Timestamp)
}
