package formulas

import (
	"github.com/markcheno/go-talib"
)

// BollingerBands holds the three Bollinger Band levels for the most recent bar.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64 // (Upper-Lower)/Middle
}

// CalculateBollingerBands computes Bollinger Bands: middle = length-day SMA,
// upper/lower = middle +/- stdDevMultiplier standard deviations.
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) *BollingerBands {
	if len(closes) < length {
		return nil
	}
	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)
	if len(upper) == 0 || isNaN(upper[len(upper)-1]) {
		return nil
	}
	u, m, l := upper[len(upper)-1], middle[len(middle)-1], lower[len(lower)-1]
	width := 0.0
	if m != 0 {
		width = (u - l) / m
	}
	return &BollingerBands{Upper: u, Middle: m, Lower: l, Width: width}
}

// BollingerPosition reports where the current close sits within the bands:
// 0.0 at the lower band, 1.0 at the upper band, clamped outside that range.
func BollingerPosition(closes []float64, length int, stdDevMultiplier float64) *float64 {
	if len(closes) == 0 {
		return nil
	}
	bands := CalculateBollingerBands(closes, length, stdDevMultiplier)
	if bands == nil {
		return nil
	}
	width := bands.Upper - bands.Lower
	if width == 0 {
		p := 0.5
		return &p
	}
	p := (closes[len(closes)-1] - bands.Lower) / width
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &p
}
