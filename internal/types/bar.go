package types

import (
	"math"
	"time"
)

// Bar represents one daily OHLCV sample plus the indicator values aligned
// with it. Indicator values are NaN until the indicator's warm-up period has
// elapsed. Bars are immutable once produced and ordered strictly increasing
// by timestamp, one sequence per instrument.
type Bar struct {
	Symbol     string             `json:"symbol"`
	Timestamp  time.Time          `json:"timestamp"`
	Open       float64            `json:"open"`
	High       float64            `json:"high"`
	Low        float64            `json:"low"`
	Close      float64            `json:"close"`
	Volume     float64            `json:"volume"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// NewBar creates a new Bar instance
func NewBar(symbol string, timestamp time.Time, open, high, low, close, volume float64) Bar {
	return Bar{
		Symbol:    symbol,
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

// Indicator returns the named indicator value for this bar. An absent column
// reads as NaN, which every consumer treats the same way as a warm-up value.
func (b Bar) Indicator(name string) float64 {
	if v, ok := b.Indicators[name]; ok {
		return v
	}
	return math.NaN()
}

// SetIndicator attaches a computed indicator value to the bar.
func (b *Bar) SetIndicator(name string, value float64) {
	if b.Indicators == nil {
		b.Indicators = make(map[string]float64)
	}
	b.Indicators[name] = value
}

// GetPrice returns the closing price (the price the fill model executes at)
func (b Bar) GetPrice() float64 {
	return b.Close
}

// GetTypicalPrice returns (high + low + close) / 3
func (b Bar) GetTypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// GetRange returns the price range (high - low)
func (b Bar) GetRange() float64 {
	return b.High - b.Low
}

// IsBullish returns true if close > open
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish returns true if close < open
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}
