package formulas

import (
	"github.com/markcheno/go-talib"
)

// EMA calculates the Exponential Moving Average, falling back to a plain
// mean when there isn't yet a full window of data.
func EMA(closes []float64, length int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	if len(closes) < length {
		m := Mean(closes)
		return &m
	}
	ema := talib.Ema(closes, length)
	if len(ema) > 0 && !isNaN(ema[len(ema)-1]) {
		v := ema[len(ema)-1]
		return &v
	}
	m := Mean(closes[len(closes)-length:])
	return &m
}

// SMA calculates the Simple Moving Average over the trailing length closes.
// Returns nil if there are fewer than length closes.
func SMA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !isNaN(sma[len(sma)-1]) {
		v := sma[len(sma)-1]
		return &v
	}
	return nil
}

// SMASeries returns the full SMA series, aligned 1:1 with closes.
func SMASeries(closes []float64, length int) []float64 {
	if len(closes) < length {
		return nil
	}
	return talib.Sma(closes, length)
}
