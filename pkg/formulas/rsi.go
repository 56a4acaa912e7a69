package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSI calculates the Relative Strength Index.
//
// RSI = 100 - (100 / (1 + RS)), where RS is average gain / average loss
// over length periods.
//
// Returns the current RSI value (0-100), or nil if there isn't enough data.
func RSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	rsi := talib.Rsi(closes, length)
	if len(rsi) > 0 && !isNaN(rsi[len(rsi)-1]) {
		v := rsi[len(rsi)-1]
		return &v
	}
	return nil
}

// RSISeries returns the full RSI series, aligned 1:1 with closes (leading
// values are NaN until length+1 closes have accumulated). Used where a
// scorer needs the prior bar's RSI, not just the latest.
func RSISeries(closes []float64, length int) []float64 {
	if len(closes) < length+1 {
		return nil
	}
	return talib.Rsi(closes, length)
}
