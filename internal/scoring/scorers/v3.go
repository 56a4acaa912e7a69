package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V3 is the silent-accumulation strategy: it looks for a stock whose
// moving averages are stacked constructively but whose price hasn't moved
// yet, while on-balance volume and candle shape hint that size is
// accumulating quietly underneath. Same reverse-alignment disqualifier as
// V2 — this family still needs a non-hostile trend, just not a confirmed one.
type V3 struct{}

func (V3) Version() string  { return "v3" }
func (V3) MinDataBars() int { return 60 }

func (V3) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if frame.MAStatus == indicators.MAReverseAligned {
		return reverseAlignedDisqualified("v3", frame)
	}

	var signals []string
	trend := scoreTrendBase(frame, &signals, 25)
	accumulation := scoreAccumulation(frame, &signals)
	volume := scoreAccumulationVolume(frame, &signals)
	momentum := scoreMildMomentum(frame, &signals)

	groups := map[string]int{
		"trend":        clampInt(trend, 0, 25),
		"accumulation": clampInt(accumulation, 0, 40),
		"volume":       clampInt(volume, -10, 20),
		"momentum":     clampInt(momentum, -10, 15),
	}
	total := 0
	for _, v := range groups {
		total += v
	}
	return scoring.Result{
		Score:        clampInt(total, 0, 100),
		Version:      "v3",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

func reverseAlignedDisqualified(version string, frame indicators.Frame) scoring.Result {
	return scoring.Result{
		Score:            0,
		Version:          version,
		Disqualified:     true,
		DisqualifyReason: "reverse-aligned (5 < 20 < 60)",
		Signals:          []string{"MA_REVERSE_ALIGNED"},
		Close:            frame.Close,
		ChangePct:        frame.ChangePct(),
		Volume:           frame.Volume,
		TradingValue:     frame.TradingValue,
	}
}

func scoreTrendBase(frame indicators.Frame, signals *[]string, cap int) int {
	total := 0
	if frame.MAStatus == indicators.MAAligned {
		total += 10
		*signals = append(*signals, "MA_ALIGNED")
	}
	if frame.SMA20Slope > 0 {
		total += 5
		*signals = append(*signals, "SMA20_RISING")
	}
	if frame.Close > frame.SMA20 && frame.SMA20 > 0 {
		total += 10
		*signals = append(*signals, "ABOVE_SMA20")
	}
	return clampInt(total, 0, cap)
}

// scoreAccumulation approximates OBV-bullish-divergence, accumulation-candle,
// and Wyckoff-spring-style detection from the frame's last bar plus its
// trailing OBV/volume reading: a rising OBV against a flat-to-falling price
// is accumulation; a small candle body on above-average volume near the
// lower Bollinger band is the "spring" shakeout pattern.
func scoreAccumulation(frame indicators.Frame, signals *[]string) int {
	total := 0
	if frame.OBVMA20 != 0 && frame.OBV > frame.OBVMA20 && frame.ChangePct() <= 1 {
		total += 15
		*signals = append(*signals, "OBV_BULLISH_DIVERGENCE")
	}
	bodyPct := frame.CandleBodyPct
	if bodyPct < 0 {
		bodyPct = -bodyPct
	}
	if bodyPct < 1.5 && frame.VolRatio >= 1.3 {
		total += 12
		*signals = append(*signals, "ACCUMULATION_CANDLE")
	}
	if frame.BBPosition <= 0.15 && frame.Close > frame.Open {
		total += 13
		*signals = append(*signals, "WYCKOFF_SPRING")
	}
	if frame.BBWidth > 0 && frame.BBWidth < 0.1 {
		total += 10
		*signals = append(*signals, "VCP_CONTRACTION")
	}
	return total
}

func scoreAccumulationVolume(frame indicators.Frame, signals *[]string) int {
	total := 0
	switch {
	case frame.VolRatio >= 3:
		total += 12
		*signals = append(*signals, "VOLUME_SPIKE_3X")
	case frame.VolRatio >= 2:
		total += 8
		*signals = append(*signals, "VOLUME_SPIKE_2X")
	case frame.VolRatio < 0.7:
		total += 6
		*signals = append(*signals, "PULLBACK_DRY_UP")
	}
	return total
}

func scoreMildMomentum(frame indicators.Frame, signals *[]string) int {
	total := 0
	switch {
	case frame.RSI14 >= 45 && frame.RSI14 <= 65:
		total += 10
		*signals = append(*signals, "RSI_CONSTRUCTIVE")
	case frame.RSI14 > 75:
		total -= 5
		*signals = append(*signals, "RSI_STRETCHED")
	}
	return total
}
