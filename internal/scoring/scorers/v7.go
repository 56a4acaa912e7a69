package scorers

import (
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V7 tightens V2's trend-follow read: it disqualifies on anything below
// SMA60, a resistance band sitting inside the likely target zone, four
// straight down closes, or thin turnover, since this family is meant for
// clean continuation moves rather than choppy recoveries.
type V7 struct{}

func (V7) Version() string  { return "v7" }
func (V7) MinDataBars() int { return 60 }

func (V7) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if reason, disqualified := v7Disqualifier(frame); disqualified {
		return scoring.Result{
			Score:            0,
			Version:          "v7",
			Disqualified:     true,
			DisqualifyReason: reason,
			Signals:          []string{reason},
			Close:            frame.Close,
			ChangePct:        frame.ChangePct(),
			Volume:           frame.Volume,
			TradingValue:     frame.TradingValue,
		}
	}

	var signals []string

	trend := 0
	if frame.MAStatus == indicators.MAAligned {
		trend += 10
		signals = append(signals, "MA_ALIGNED")
	}
	switch {
	case frame.SMA20Slope >= 3:
		trend += 15
		signals = append(signals, "SMA20_SLOPE_STRONG")
	case frame.SMA20Slope >= 1:
		trend += 8
		signals = append(signals, "SMA20_SLOPE_MODERATE")
	}
	trend = clampInt(trend, 0, 25)

	momentum := 0
	switch {
	case frame.RSI14 >= 60 && frame.RSI14 <= 75:
		momentum += 20
		signals = append(signals, "RSI_TREND_ZONE")
	case frame.RSI14 > 75:
		momentum += 10
		signals = append(signals, "RSI_STRONG_BUT_STRETCHED")
	}
	if frame.MACDHist > 0 {
		momentum += 10
		signals = append(signals, "MACD_HIST_POSITIVE")
	}
	momentum = clampInt(momentum, 0, 30)

	energy := 0
	switch {
	case frame.VolRatio >= 3:
		energy += 15
		signals = append(signals, "VOLUME_SURGE_3X")
	case frame.VolRatio >= 1.5:
		energy += 8
		signals = append(signals, "VOLUME_ABOVE_AVERAGE")
	}
	if frame.SupertrendDirection.IsBullish() {
		energy += 10
		signals = append(signals, "SUPERTREND_BULLISH")
	}
	energy = clampInt(energy, 0, 25)

	support := 0
	if frame.Close > frame.SMA20 && frame.SMA20 > frame.SMA60 && frame.SMA60 > 0 {
		support += 12
		signals = append(signals, "SUPPORT_STACK_INTACT")
	}
	if frame.BBPosition >= 0.5 {
		support += 8
		signals = append(signals, "UPPER_HALF_OF_BAND")
	}
	support = clampInt(support, 0, 20)

	groups := map[string]int{"trend": trend, "momentum": momentum, "energy": energy, "support": support}
	total := clampInt(trend+momentum+energy+support, 0, 100)

	return scoring.Result{
		Score:        total,
		Version:      "v7",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

func v7Disqualifier(frame indicators.Frame) (string, bool) {
	if frame.SMA60 > 0 && frame.Close < frame.SMA60 {
		return "BELOW_MA60", true
	}
	if frame.BBUpper > 0 && frame.BBUpper < frame.Close*1.03 {
		return "resistance band sits inside target zone", true
	}
	if frame.TradingValue < 1_000_000_000 {
		return "liquidity below 1B KRW", true
	}
	if fourConsecutiveDown(frame.Bars()) {
		return "four consecutive down closes", true
	}
	return "", false
}

// fourConsecutiveDown reports whether the last four bars each closed lower
// than their own open, the choppy-pullback pattern this family avoids.
func fourConsecutiveDown(bars []domain.PriceBar) bool {
	if len(bars) < 4 {
		return false
	}
	for _, b := range bars[len(bars)-4:] {
		if b.Close >= b.Open {
			return false
		}
	}
	return true
}
