package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V4 is the hybrid-sniper strategy: trend health plus a supply/demand read
// that weighs foreign and institutional five-day net buying alongside a
// VCP/OBV-divergence pattern group. A shooting-star candle on the last bar
// docks points rather than disqualifying outright — this family still buys
// through minor exhaustion signs as long as the broader trend holds.
type V4 struct{}

func (V4) Version() string  { return "v4" }
func (V4) MinDataBars() int { return 60 }

func (V4) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if frame.MAStatus == indicators.MAReverseAligned {
		return reverseAlignedDisqualified("v4", frame)
	}

	var signals []string
	trend := scoreTrendBase(frame, &signals, 30)
	if frame.MACD > frame.MACDSignal {
		trend += 5
		signals = append(signals, "MACD_BULLISH_CROSS")
	}
	trend = clampInt(trend, 0, 30)

	supply := 0
	if isRising(extras.ForeignNetBuy5D) {
		supply += 15
		signals = append(signals, "FOREIGN_NET_BUY_5D")
	}
	if isRising(extras.InstitutionNetBuy5D) {
		supply += 15
		signals = append(signals, "INSTITUTION_NET_BUY_5D")
	}
	supply = clampInt(supply, 0, 30)

	pattern := 0
	if frame.BBWidth > 0 && frame.BBWidth < 0.12 {
		pattern += 10
		signals = append(signals, "VCP_CONTRACTION")
	}
	if frame.OBVMA20 != 0 && frame.OBV > frame.OBVMA20 {
		pattern += 10
		signals = append(signals, "OBV_DIVERGENCE_BULLISH")
	}
	pattern = clampInt(pattern, 0, 20)

	momentum := 0
	switch {
	case frame.RSI14 >= 55 && frame.RSI14 <= 75:
		momentum += 15
		signals = append(signals, "RSI_MOMENTUM_HEALTHY")
	case frame.RSI14 > 80:
		momentum -= 5
		signals = append(signals, "RSI_OVERHEATED")
	}
	if isShootingStar(frame) {
		momentum -= 5
		signals = append(signals, "SHOOTING_STAR")
	}
	momentum = clampInt(momentum, -10, 20)

	groups := map[string]int{"trend": trend, "supply": supply, "pattern": pattern, "momentum": momentum}
	total := trend + supply + pattern + momentum

	return scoring.Result{
		Score:        clampInt(total, 0, 100),
		Version:      "v4",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

// isShootingStar approximates the candle pattern from OHLC alone: a small
// body near the bottom of the bar's range with a long upper shadow.
func isShootingStar(frame indicators.Frame) bool {
	rangeSize := frame.High - frame.Low
	if rangeSize <= 0 {
		return false
	}
	bodyTop := frame.Close
	if frame.Open > bodyTop {
		bodyTop = frame.Open
	}
	upperShadow := frame.High - bodyTop
	bodySize := frame.Open - frame.Close
	if bodySize < 0 {
		bodySize = -bodySize
	}
	return upperShadow > rangeSize*0.6 && bodySize < rangeSize*0.2
}
