package market

import "time"

// Candle represents a single OHLCV bar. Bars are expected in chronological
// order (oldest first); no gap detection is performed.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// TradeRecord represents one closed trade as supplied by the external
// trade ledger. EntryPrice and ExitPrice are the only required fields;
// everything else is optional enrichment.
type TradeRecord struct {
	Symbol     string    `json:"symbol,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
	Side       string    `json:"side,omitempty"` // LONG or SHORT
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity,omitempty"`
	PnL        float64   `json:"pnl,omitempty"`
	EntryTime  time.Time `json:"entry_time,omitempty"`
	ExitTime   time.Time `json:"exit_time,omitempty"`
}

// Return is the fractional return of the trade, zero when the entry
// price is degenerate.
func (t TradeRecord) Return() float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	return (t.ExitPrice - t.EntryPrice) / t.EntryPrice
}

// Closes extracts the close series from a candle window.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
