package types

import (
	"time"
)

// TradeRecord represents one immutable line of the trade ledger. PnL,
// PnLPercent and HoldingBars are zero on a BUY record and set on the SELL
// record that closes the round trip; no other field is ever mutated after
// the record is appended.
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Size       float64   `json:"size"`
	FillPrice  float64   `json:"fill_price"`
	GrossValue float64   `json:"gross_value"`
	Commission float64   `json:"commission"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	// HoldingBars counts bars between entry and exit fill.
	HoldingBars int `json:"holding_bars"`
	// Allocation is the fill's gross value as a fraction of portfolio value
	// at fill time.
	Allocation float64 `json:"allocation"`
	Reason     string  `json:"reason"`
}

// IsEntry returns true for the BUY leg of a round trip
func (t TradeRecord) IsEntry() bool {
	return t.Side == OrderSideBuy
}

// IsExit returns true for the SELL leg of a round trip
func (t TradeRecord) IsExit() bool {
	return t.Side == OrderSideSell
}

// IsWin returns true if the record is a closing sell with positive PnL.
func (t TradeRecord) IsWin() bool {
	return t.IsExit() && t.PnL > 0
}
