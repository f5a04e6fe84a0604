package types

import (
	"time"
)

// Position represents the single open position the engine holds for one
// instrument. Size is signed, positive = long. A position is created on a
// filled buy and destroyed by the filled sell that brings size back to zero;
// while it is open, new entry signals are ignored (no pyramiding).
type Position struct {
	Symbol     string    `json:"symbol"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	EntryBar   int       `json:"entry_bar"`
	FeePaid    float64   `json:"fee_paid"`
}

// NewPosition creates a new long position at the given fill.
func NewPosition(symbol string, size, entryPrice float64, entryTime time.Time, entryBar int) *Position {
	return &Position{
		Symbol:     symbol,
		Size:       size,
		EntryPrice: entryPrice,
		EntryTime:  entryTime,
		EntryBar:   entryBar,
	}
}

// MarketValue returns the position's value marked at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Size * price
}

// UnrealizedPnL returns the open profit/loss marked at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Size
}

// HoldingBars returns how many bars the position has been open as of barIndex.
func (p *Position) HoldingBars(barIndex int) int {
	return barIndex - p.EntryBar
}
