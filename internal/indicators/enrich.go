package indicators

import (
	"fmt"
	"strconv"
	"strings"

	"metrade/internal/types"
)

// Fixed column names for multi-series indicators.
const (
	ColMACD       = "macd"
	ColMACDSignal = "macd_signal"
	ColMACDHist   = "macd_hist"
	ColBBUpper    = "bb_upper"
	ColBBMiddle   = "bb_middle"
	ColBBLower    = "bb_lower"
)

// Column builds the canonical column name for a period-parameterized
// indicator, e.g. Column("SMA", 50) == "sma_50".
func Column(name string, period int) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(name), period)
}

// Enrich computes the requested indicator columns over the bar sequence and
// attaches the values to each bar in place. Column names follow the
// convention the strategy compiler emits: "sma_50", "ema_12", "rsi_14",
// "atr_14", the macd_* trio and the bb_* trio. Requesting any one column of
// a multi-series indicator attaches the whole group.
func Enrich(bars []types.Bar, columns []string) error {
	if len(bars) == 0 {
		return nil
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	attach := func(name string, series []float64) {
		for i := range bars {
			bars[i].SetIndicator(name, series[i])
		}
	}

	done := make(map[string]bool)
	for _, col := range columns {
		if done[col] {
			continue
		}

		switch {
		case col == ColMACD, col == ColMACDSignal, col == ColMACDHist:
			macd, signal, hist := MACD(DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal, closes)
			attach(ColMACD, macd)
			attach(ColMACDSignal, signal)
			attach(ColMACDHist, hist)
			done[ColMACD], done[ColMACDSignal], done[ColMACDHist] = true, true, true

		case col == ColBBUpper, col == ColBBMiddle, col == ColBBLower:
			upper, middle, lower := Bollinger(DefaultBollingerPeriod, DefaultBollingerStdDev, closes)
			attach(ColBBUpper, upper)
			attach(ColBBMiddle, middle)
			attach(ColBBLower, lower)
			done[ColBBUpper], done[ColBBMiddle], done[ColBBLower] = true, true, true

		default:
			base, period, err := splitColumn(col)
			if err != nil {
				return err
			}
			switch base {
			case "sma":
				attach(col, SMA(period, closes))
			case "ema":
				attach(col, EMA(period, closes))
			case "rsi":
				attach(col, RSI(period, closes))
			case "atr":
				attach(col, ATR(period, highs, lows, closes))
			default:
				return fmt.Errorf("unknown indicator column %q", col)
			}
			done[col] = true
		}
	}
	return nil
}

// splitColumn parses "sma_50" into ("sma", 50).
func splitColumn(col string) (string, int, error) {
	idx := strings.LastIndex(col, "_")
	if idx <= 0 || idx == len(col)-1 {
		return "", 0, fmt.Errorf("unknown indicator column %q", col)
	}
	period, err := strconv.Atoi(col[idx+1:])
	if err != nil || period < 1 {
		return "", 0, fmt.Errorf("invalid period in indicator column %q", col)
	}
	return col[:idx], period, nil
}
