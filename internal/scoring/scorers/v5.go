package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V5 looks for the setup before a long bullish candle: a pullback into
// support, a Bollinger squeeze, converging moving averages, and OBV
// accumulation all stacking at once. It has no disqualifier — every group
// is additive, then the raw total (which can reach 145 across seven
// sub-checks) compresses through a piecewise scale into [0,100] so a
// stock hitting every check still tops out at 100 rather than running
// past it.
type V5 struct{}

func (V5) Version() string  { return "v5" }
func (V5) MinDataBars() int { return 60 }

func (V5) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	var signals []string
	raw := 0

	if frame.BBPosition <= 0.35 && frame.Close > frame.SMA20*0.97 {
		raw += 30
		signals = append(signals, "PULLBACK_TO_SUPPORT")
	}
	if frame.BBWidth > 0 && frame.BBWidth < 0.08 {
		raw += 25
		signals = append(signals, "BB_SQUEEZE")
	}
	if maConverging(frame) {
		raw += 25
		signals = append(signals, "MA_CONVERGENCE")
	}
	if frame.OBVMA20 != 0 && frame.OBV > frame.OBVMA20 {
		raw += 20
		signals = append(signals, "OBV_ACCUMULATION")
	}
	if frame.RSI14 >= 45 && frame.RSI14 <= 65 {
		raw += 25
		signals = append(signals, "MOMENTUM_BUILDING")
	}
	if frame.Close < frame.SMA60*1.02 && frame.Close > frame.SMA60*0.97 {
		raw += 10
		signals = append(signals, "NEAR_RESISTANCE")
	}
	if frame.SMA20Slope >= 0 {
		raw += 10
		signals = append(signals, "TREND_SUPPORTIVE")
	}

	scaled := compressV5(raw)

	return scoring.Result{
		Score:        scaled,
		Version:      "v5",
		Signals:      signals,
		Groups:       map[string]int{"raw": raw},
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

// maConverging reports whether SMA5/SMA20/SMA60 sit within a tight band of
// each other, the setup just before a directional breakout.
func maConverging(frame indicators.Frame) bool {
	if frame.SMA60 == 0 {
		return false
	}
	spread := (maxOf(frame.SMA5, frame.SMA20, frame.SMA60) - minOf(frame.SMA5, frame.SMA20, frame.SMA60)) / frame.SMA60
	return spread >= 0 && spread < 0.03
}

func maxOf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vs ...float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// compressV5 maps the raw [0..145] total onto [0..100], matching the scale
// used by V1's piecewise compression but tuned to V5's wider raw range.
func compressV5(raw int) int {
	var scaled int
	switch {
	case raw <= 70:
		scaled = int(float64(raw) * 0.8)
	case raw <= 110:
		scaled = 56 + int(float64(raw-70)*0.75)
	default:
		scaled = 86 + int(float64(raw-110)*0.4)
	}
	return clampInt(scaled, 0, 100)
}
