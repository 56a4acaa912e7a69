package formulas

import "github.com/markcheno/go-talib"

// ADX calculates the Average Directional Index along with its +DI/-DI
// companions, used by the breadth-composite scorer to gauge trend strength
// independent of direction.
func ADX(highs, lows, closes []float64, length int) (adx, plusDI, minusDI *float64) {
	if len(closes) < length*2 {
		return nil, nil, nil
	}
	a := talib.Adx(highs, lows, closes, length)
	p := talib.PlusDI(highs, lows, closes, length)
	m := talib.MinusDI(highs, lows, closes, length)
	if len(a) == 0 || isNaN(a[len(a)-1]) {
		return nil, nil, nil
	}
	av, pv, mv := a[len(a)-1], p[len(p)-1], m[len(m)-1]
	return &av, &pv, &mv
}

// CCI calculates the Commodity Channel Index.
func CCI(highs, lows, closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	v := talib.Cci(highs, lows, closes, length)
	if len(v) == 0 || isNaN(v[len(v)-1]) {
		return nil
	}
	out := v[len(v)-1]
	return &out
}

// WilliamsR calculates Williams %R, a 0..-100 overbought/oversold oscillator.
func WilliamsR(highs, lows, closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	v := talib.WillR(highs, lows, closes, length)
	if len(v) == 0 || isNaN(v[len(v)-1]) {
		return nil
	}
	out := v[len(v)-1]
	return &out
}

// MFI calculates the Money Flow Index, volume-weighted RSI.
func MFI(highs, lows, closes, volumes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	v := talib.Mfi(highs, lows, closes, volumes, length)
	if len(v) == 0 || isNaN(v[len(v)-1]) {
		return nil
	}
	out := v[len(v)-1]
	return &out
}

// ROC calculates the Rate of Change over length periods, along with the
// previous bar's value so callers can detect a zero-line cross.
func ROC(closes []float64, length int) (curr, prev *float64) {
	if len(closes) < length+2 {
		return nil, nil
	}
	v := talib.Roc(closes, length)
	if len(v) < 2 || isNaN(v[len(v)-1]) || isNaN(v[len(v)-2]) {
		return nil, nil
	}
	c, p := v[len(v)-1], v[len(v)-2]
	return &c, &p
}

// CMF approximates the Chaikin Money Flow oscillator: the 20-day sum of
// money-flow-volume divided by the 20-day sum of volume. Not part of
// go-talib, so it's computed directly from OHLCV the same way the rest of
// this package falls back to a manual formula when talib has no equivalent
// (see Supertrend).
func CMF(highs, lows, closes, volumes []float64, length int) *float64 {
	n := len(closes)
	if n < length {
		return nil
	}
	var mfvSum, volSum float64
	for i := n - length; i < n; i++ {
		hl := highs[i] - lows[i]
		if hl == 0 {
			continue
		}
		mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / hl
		mfvSum += mfm * volumes[i]
		volSum += volumes[i]
	}
	if volSum == 0 {
		return nil
	}
	out := mfvSum / volSum
	return &out
}

// CandlePattern reports the bullish/bearish candlestick patterns go-talib
// recognises on the most recent bar. Values follow talib's convention:
// positive for a bullish signal, negative for bearish, zero for none.
type CandlePattern struct {
	Hammer        float64
	Engulfing     float64
	MorningStar   float64
	EveningStar   float64
}

// DetectCandlePatterns evaluates the standard candlestick recognisers over
// the series and returns their reading on the last bar.
func DetectCandlePatterns(opens, highs, lows, closes []float64) CandlePattern {
	last := func(series []float64) float64 {
		if len(series) == 0 {
			return 0
		}
		return series[len(series)-1]
	}
	return CandlePattern{
		Hammer:      last(talib.CdlHammer(opens, highs, lows, closes)),
		Engulfing:   last(talib.CdlEngulfing(opens, highs, lows, closes)),
		MorningStar: last(talib.CdlMorningStar(opens, highs, lows, closes, 0.3)),
		EveningStar: last(talib.CdlEveningStar(opens, highs, lows, closes, 0.3)),
	}
}
