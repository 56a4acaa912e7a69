package formulas

import "github.com/markcheno/go-talib"

// SupertrendDirection is +1 for an uptrend band, -1 for a downtrend band.
type SupertrendDirection int

const (
	SupertrendDown SupertrendDirection = -1
	SupertrendUp   SupertrendDirection = 1
)

// IsBullish reports whether the direction is the uptrend band.
func (d SupertrendDirection) IsBullish() bool { return d == SupertrendUp }

// Supertrend is not part of go-talib, so it's built on top of talib.Atr the
// same way the rest of this package wraps talib primitives: final upper/lower
// bands derived from (high+low)/2 +/- multiplier*ATR, with the running band
// only ever tightening toward price, and direction flipping when the close
// crosses the opposite band.
func Supertrend(highs, lows, closes []float64, length int, multiplier float64) (value float64, direction SupertrendDirection, ok bool) {
	n := len(closes)
	if n < length+1 {
		return 0, 0, false
	}
	atr := talib.Atr(highs, lows, closes, length)
	if len(atr) != n {
		return 0, 0, false
	}

	upperBand := make([]float64, n)
	lowerBand := make([]float64, n)
	dir := make([]SupertrendDirection, n)
	st := make([]float64, n)

	start := length
	for i := 0; i < n; i++ {
		mid := (highs[i] + lows[i]) / 2
		basicUpper := mid + multiplier*atr[i]
		basicLower := mid - multiplier*atr[i]

		if i < start {
			upperBand[i], lowerBand[i] = basicUpper, basicLower
			dir[i] = SupertrendUp
			st[i] = lowerBand[i]
			continue
		}

		if basicUpper < upperBand[i-1] || closes[i-1] > upperBand[i-1] {
			upperBand[i] = basicUpper
		} else {
			upperBand[i] = upperBand[i-1]
		}
		if basicLower > lowerBand[i-1] || closes[i-1] < lowerBand[i-1] {
			lowerBand[i] = basicLower
		} else {
			lowerBand[i] = lowerBand[i-1]
		}

		switch dir[i-1] {
		case SupertrendUp:
			if closes[i] < lowerBand[i] {
				dir[i] = SupertrendDown
			} else {
				dir[i] = SupertrendUp
			}
		default:
			if closes[i] > upperBand[i] {
				dir[i] = SupertrendUp
			} else {
				dir[i] = SupertrendDown
			}
		}

		if dir[i] == SupertrendUp {
			st[i] = lowerBand[i]
		} else {
			st[i] = upperBand[i]
		}
	}

	return st[n-1], dir[n-1], true
}

// SupertrendFlippedBullish reports whether the supertrend direction flipped
// from down to up on the most recent bar.
func SupertrendFlippedBullish(highs, lows, closes []float64, length int, multiplier float64) bool {
	n := len(closes)
	if n < length+2 {
		return false
	}
	_, dirNow, ok := Supertrend(highs, lows, closes, length, multiplier)
	if !ok {
		return false
	}
	_, dirPrev, ok := Supertrend(highs[:n-1], lows[:n-1], closes[:n-1], length, multiplier)
	if !ok {
		return false
	}
	return dirPrev == SupertrendDown && dirNow == SupertrendUp
}
