package scorers

import (
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V8 is the contrarian complement to V7: it looks for a bounce off the
// bottom rather than a continuation at the top, so it disqualifies when the
// trend is already too strong (there's nothing to bounce from), when RSI is
// overbought, on a falling-knife day, or after five straight down closes
// where the bounce thesis has already failed once too often.
type V8 struct{}

func (V8) Version() string  { return "v8" }
func (V8) MinDataBars() int { return 60 }

func (V8) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if reason, disqualified := v8Disqualifier(frame); disqualified {
		return scoring.Result{
			Score:            0,
			Version:          "v8",
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

	bounce := 0
	if frame.BBPosition <= 0.2 {
		bounce += 20
		signals = append(signals, "LOWER_BAND_TOUCH")
	}
	if frame.RSI14 > 0 && frame.RSI14 <= 35 {
		bounce += 20
		signals = append(signals, "RSI_OVERSOLD")
	}
	bounce = clampInt(bounce, 0, 40)

	energy := 0
	if frame.StochK > 0 && frame.StochK <= 20 && frame.StochK > frame.StochD {
		energy += 15
		signals = append(signals, "STOCH_OVERSOLD_CROSS")
	}
	if frame.VolRatio >= 2 {
		energy += 10
		signals = append(signals, "CAPITULATION_VOLUME")
	}
	energy = clampInt(energy, 0, 25)

	bottom := 0
	if frame.Close > frame.Low+(frame.High-frame.Low)*0.3 && frame.High > frame.Low {
		bottom += 10
		signals = append(signals, "CLOSED_OFF_THE_LOW")
	}
	if frame.ATR14 > 0 && frame.Close-frame.Low < frame.ATR14*0.5 {
		bottom += 10
		signals = append(signals, "NEAR_RECENT_LOW")
	}
	bottom = clampInt(bottom, 0, 20)

	supply := 0
	if isRising(extras.ForeignNetBuy5D) {
		supply += 8
		signals = append(signals, "FOREIGN_NET_BUY_TURNING")
	}
	if extras.ShortBalanceRatio > 0 && extras.ShortBalanceRatio < 0.015 {
		supply += 7
		signals = append(signals, "SHORT_BALANCE_LOW")
	}
	supply = clampInt(supply, 0, 15)

	groups := map[string]int{"bounce": bounce, "energy": energy, "bottom": bottom, "supply": supply}
	total := clampInt(bounce+energy+bottom+supply, 0, 100)

	return scoring.Result{
		Score:        total,
		Version:      "v8",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

func v8Disqualifier(frame indicators.Frame) (string, bool) {
	if frame.MAStatus == indicators.MAAligned && frame.SMA20Slope >= 3 {
		return "trend already too strong to bounce from", true
	}
	if frame.RSI14 > 80 {
		return "RSI above 80", true
	}
	if frame.ChangePct() <= -7 {
		return "falling-knife day (-7%)", true
	}
	if frame.TradingValue < 500_000_000 {
		return "liquidity below 500M KRW", true
	}
	if fiveConsecutiveDown(frame.Bars()) {
		return "five consecutive down closes", true
	}
	return "", false
}

func fiveConsecutiveDown(bars []domain.PriceBar) bool {
	if len(bars) < 5 {
		return false
	}
	for _, b := range bars[len(bars)-5:] {
		if b.Close >= b.Open {
			return false
		}
	}
	return true
}
