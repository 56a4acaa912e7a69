// Package scorers holds the concrete v1-v10 scoring strategies.
package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/dohyunpark/autotrader/pkg/formulas"
)

// V1 is the breadth-composite strategy: sum signals across moving
// averages, RSI, MACD, Bollinger, Stochastic, ADX, CCI, Williams %R, OBV,
// MFI, volume, Supertrend, ROC, CMF, and candlestick patterns, then
// compress the raw total through a three-tier piecewise scale. Oversold
// readings add points rather than disqualifying, the opposite of the
// trend-follow families — a cheap stock in a reverse alignment is a
// candidate, not a reject.
type V1 struct{}

func (V1) Version() string   { return "v1" }
func (V1) MinDataBars() int  { return 60 }

func (V1) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	bars := frame.Bars()
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	opens := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i], highs[i], lows[i], opens[i], volumes[i] = b.Close, b.High, b.Low, b.Open, b.Volume
	}

	raw := 0
	var signals []string
	add := func(points int, signal string) {
		raw += points
		if signal != "" {
			signals = append(signals, signal)
		}
	}

	switch frame.MAStatus {
	case indicators.MAAligned:
		add(15, "MA_ALIGNED")
	case indicators.MAReverseAligned:
		add(-10, "MA_REVERSE_ALIGNED")
	}

	switch {
	case frame.RSI14 < 30 && frame.RSI14 > 0:
		add(15, "RSI_OVERSOLD")
	case frame.RSI14 >= 30 && frame.RSI14 < 50:
		add(5, "RSI_RECOVERING")
	case frame.RSI14 > 70:
		add(-10, "RSI_OVERBOUGHT")
	}

	if frame.MACDHist > 0 && frame.MACD > frame.MACDSignal {
		add(10, "MACD_HIST_POSITIVE")
	}

	if frame.BBPosition <= 0.02 {
		add(10, "BB_LOWER_TOUCH")
	}
	if frame.BBPosition >= 0.98 {
		add(-5, "BB_UPPER_BREAK")
	}

	if frame.StochK < 30 && frame.StochK > frame.StochD {
		add(20, "STOCH_GOLDEN_OVERSOLD")
	} else if frame.StochK > frame.StochD {
		add(10, "STOCH_GOLDEN_CROSS")
	}
	if frame.StochK < 20 {
		add(5, "STOCH_OVERSOLD")
	}

	if adx, plusDI, minusDI := formulas.ADX(highs, lows, closes, 14); adx != nil {
		switch {
		case *adx > 25 && *plusDI > *minusDI:
			add(15, "ADX_STRONG_UPTREND")
		case *adx > 20 && *plusDI > *minusDI:
			add(10, "ADX_UPTREND")
		}
	}

	if cci := formulas.CCI(highs, lows, closes, 20); cci != nil {
		switch {
		case *cci < -100:
			add(10, "CCI_OVERSOLD")
		case *cci > 100:
			add(-5, "CCI_OVERBOUGHT")
		}
	}

	if willr := formulas.WilliamsR(highs, lows, closes, 14); willr != nil {
		switch {
		case *willr < -80:
			add(10, "WILLR_OVERSOLD")
		case *willr > -20:
			add(-5, "WILLR_OVERBOUGHT")
		}
	}

	if frame.OBVMA20 != 0 && frame.OBV > frame.OBVMA20 {
		add(10, "OBV_ABOVE_MA")
	}

	if mfi := formulas.MFI(highs, lows, closes, volumes, 14); mfi != nil {
		switch {
		case *mfi < 20:
			add(15, "MFI_OVERSOLD")
		case *mfi < 40:
			add(5, "MFI_LOW")
		case *mfi > 80:
			add(-10, "MFI_OVERBOUGHT")
		}
	}

	switch {
	case frame.VolRatio >= 2.0:
		add(15, "VOLUME_SURGE")
	case frame.VolRatio >= 1.5:
		add(10, "VOLUME_HIGH")
	case frame.VolRatio >= 1.2:
		add(5, "VOLUME_ABOVE_AVG")
	}

	if frame.SupertrendFlipUp {
		add(20, "SUPERTREND_BUY")
	} else if frame.SupertrendDirection == formulas.SupertrendUp {
		add(5, "SUPERTREND_UPTREND")
	}

	if roc, prevRoc := formulas.ROC(closes, 10); roc != nil && prevRoc != nil {
		switch {
		case *prevRoc < 0 && *roc > 0:
			add(10, "ROC_POSITIVE_CROSS")
		case *roc > 5:
			add(5, "ROC_STRONG_MOMENTUM")
		}
	}

	if cmf := formulas.CMF(highs, lows, closes, volumes, 20); cmf != nil {
		switch {
		case *cmf > 0.2:
			add(10, "CMF_STRONG_INFLOW")
		case *cmf > 0:
			add(5, "CMF_POSITIVE")
		case *cmf < -0.2:
			add(-10, "CMF_STRONG_OUTFLOW")
		}
	}

	patterns := formulas.DetectCandlePatterns(opens, highs, lows, closes)
	if patterns.Hammer != 0 {
		add(10, "HAMMER")
	}
	switch {
	case patterns.Engulfing > 0:
		add(15, "BULLISH_ENGULFING")
	case patterns.Engulfing < 0:
		add(-10, "BEARISH_ENGULFING")
	}
	if patterns.MorningStar != 0 {
		add(20, "MORNING_STAR")
	}
	if patterns.EveningStar != 0 {
		add(-15, "EVENING_STAR")
	}

	var scaled int
	switch {
	case raw <= 60:
		scaled = int(float64(raw) * 0.9)
	case raw <= 100:
		scaled = 54 + int(float64(raw-60)*0.65)
	default:
		scaled = 80 + int(float64(raw-100)*0.4)
	}
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 100 {
		scaled = 100
	}

	return scoring.Result{
		Score:        scaled,
		Version:      "v1",
		Signals:      signals,
		Groups:       map[string]int{"composite_raw": raw},
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}
