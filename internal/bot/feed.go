package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"adaptive-trading-bot/internal/market"
)

// CandleFeed supplies the candle windows each adaptive cycle reads.
type CandleFeed interface {
	Candles(symbol string) []market.Candle
	Advance()
}

// FixtureFeed replays candles loaded from a JSON file keyed by symbol.
// Each Advance exposes one more bar per symbol, so successive cycles see
// a growing window the way a live stream would deliver it.
type FixtureFeed struct {
	mu      sync.RWMutex
	candles map[string][]market.Candle
	cursor  int
}

// minReplayWindow is how many bars the first cycle already sees.
const minReplayWindow = 60

// NewFixtureFeed loads the replay file.
func NewFixtureFeed(path string) (*FixtureFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candle fixture: %w", err)
	}

	var candles map[string][]market.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("parse candle fixture: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("candle fixture %s holds no symbols", path)
	}

	return &FixtureFeed{candles: candles, cursor: minReplayWindow}, nil
}

// Candles returns the window visible at the current cursor, nil for an
// unknown symbol.
func (f *FixtureFeed) Candles(symbol string) []market.Candle {
	f.mu.RLock()
	defer f.mu.RUnlock()

	series, ok := f.candles[symbol]
	if !ok {
		return nil
	}
	if f.cursor >= len(series) {
		return series
	}
	return series[:f.cursor]
}

// Advance moves the replay cursor forward one bar.
func (f *FixtureFeed) Advance() {
	f.mu.Lock()
	f.cursor++
	f.mu.Unlock()
}

// All returns the full series for a symbol, ignoring the cursor. The
// optimizer scorer replays complete history rather than the live window.
func (f *FixtureFeed) All(symbol string) []market.Candle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.candles[symbol]
}
