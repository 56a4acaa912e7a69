package formulas

import (
	"github.com/markcheno/go-talib"
)

// MACD holds the three MACD lines for the most recent bar.
type MACD struct {
	Value     float64 // fast EMA - slow EMA
	Signal    float64 // EMA of Value
	Histogram float64 // Value - Signal
}

// CalculateMACD computes MACD(fast, slow, signal) over closes, typically
// MACD(closes, 12, 26, 9).
func CalculateMACD(closes []float64, fast, slow, signal int) *MACD {
	if len(closes) < slow+signal {
		return nil
	}
	macd, macdSignal, hist := talib.Macd(closes, fast, slow, signal)
	if len(macd) == 0 || isNaN(macd[len(macd)-1]) {
		return nil
	}
	return &MACD{
		Value:     macd[len(macd)-1],
		Signal:    macdSignal[len(macdSignal)-1],
		Histogram: hist[len(hist)-1],
	}
}
