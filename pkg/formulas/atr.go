package formulas

import (
	"github.com/markcheno/go-talib"
)

// ATR calculates the Average True Range over length periods (typically 14).
func ATR(highs, lows, closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	atr := talib.Atr(highs, lows, closes, length)
	if len(atr) > 0 && !isNaN(atr[len(atr)-1]) {
		v := atr[len(atr)-1]
		return &v
	}
	return nil
}

// OBV calculates On-Balance Volume: a running total that adds volume on up
// closes and subtracts it on down closes.
func OBV(closes, volumes []float64) []float64 {
	if len(closes) == 0 {
		return nil
	}
	return talib.Obv(closes, volumes)
}

// Stoch calculates the slow stochastic oscillator (%K, %D) with the
// conventional 14/3/3 parameterisation.
func Stoch(highs, lows, closes []float64, fastKPeriod, slowKPeriod, slowDPeriod int) (k, d *float64) {
	if len(closes) < fastKPeriod {
		return nil, nil
	}
	outK, outD := talib.Stoch(highs, lows, closes, fastKPeriod, slowKPeriod, talib.SMA, slowDPeriod, talib.SMA)
	if len(outK) == 0 || isNaN(outK[len(outK)-1]) {
		return nil, nil
	}
	kv, dv := outK[len(outK)-1], outD[len(outD)-1]
	return &kv, &dv
}

// StochRSI calculates the Stochastic RSI (%K, %D): the stochastic oscillator
// applied to the RSI series instead of price, a faster-moving momentum read.
func StochRSI(closes []float64, rsiLength, stochLength, kPeriod, dPeriod int) (k, d *float64) {
	rsiSeries := RSISeries(closes, rsiLength)
	if rsiSeries == nil {
		return nil, nil
	}
	trimmed := dropLeadingNaN(rsiSeries)
	if len(trimmed) < stochLength {
		return nil, nil
	}
	outK, outD := talib.Stoch(trimmed, trimmed, trimmed, stochLength, kPeriod, talib.SMA, dPeriod, talib.SMA)
	if len(outK) == 0 || isNaN(outK[len(outK)-1]) {
		return nil, nil
	}
	kv, dv := outK[len(outK)-1], outD[len(outD)-1]
	return &kv, &dv
}

func dropLeadingNaN(series []float64) []float64 {
	for i, v := range series {
		if !isNaN(v) {
			return series[i:]
		}
	}
	return nil
}
