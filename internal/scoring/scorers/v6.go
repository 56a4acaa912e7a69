package scorers

import (
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V6 is the swing predictor: unlike the other families it attaches an
// ExitPlan to its result, since a swing entry needs a target/stop/time-stop
// baked in at scoring time rather than left to the risk manager's generic
// rules. Disqualifies on a strongly reverse-aligned stack, extreme RSI,
// a climactic blow-off top, or a sharp down day — all conditions where a
// swing entry is buying exhaustion, not strength.
type V6 struct{}

func (V6) Version() string  { return "v6" }
func (V6) MinDataBars() int { return 60 }

func (V6) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if reason, disqualified := v6Disqualifier(frame); disqualified {
		return scoring.Result{
			Score:            0,
			Version:          "v6",
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
	energy := 0
	if frame.VolRatio >= 2 {
		energy += 15
		signals = append(signals, "VOLUME_ENERGY_HIGH")
	}
	if frame.SupertrendDirection.IsBullish() {
		energy += 10
		signals = append(signals, "SUPERTREND_BULLISH")
	}
	if frame.MACDHist > 0 {
		energy += 10
		signals = append(signals, "MACD_HIST_POSITIVE")
	}
	energy = clampInt(energy, 0, 35)

	smartMoney := 0
	if frame.OBVMA20 != 0 && frame.OBV > frame.OBVMA20 {
		smartMoney += 15
		signals = append(signals, "OBV_SMART_MONEY")
	}
	if isRising(extras.InstitutionNetBuy5D) {
		smartMoney += 15
		signals = append(signals, "INSTITUTION_ACCUMULATING")
	}
	smartMoney = clampInt(smartMoney, 0, 30)

	support := 0
	if frame.Close > frame.SMA20 && frame.SMA20 > 0 {
		support += 10
		signals = append(signals, "ABOVE_SMA20_SUPPORT")
	}
	if frame.BBPosition >= 0.3 && frame.BBPosition <= 0.7 {
		support += 10
		signals = append(signals, "MID_BAND_SUPPORT")
	}
	support = clampInt(support, 0, 20)

	momentum := 0
	if frame.RSI14 >= 55 && frame.RSI14 <= 75 {
		momentum += 15
		signals = append(signals, "RSI_SWING_ZONE")
	}
	momentum = clampInt(momentum, 0, 15)

	total := clampInt(energy+smartMoney+support+momentum, 0, 100)

	result := scoring.Result{
		Score:   total,
		Version: "v6",
		Signals: signals,
		Groups: map[string]int{
			"energy":      energy,
			"smart_money": smartMoney,
			"support":     support,
			"momentum":    momentum,
		},
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
	result.ExitPlan = v6ExitPlan(frame, total)
	return result
}

func v6Disqualifier(frame indicators.Frame) (string, bool) {
	if frame.MAStatus == indicators.MAReverseAligned && frame.SMA20Slope < -3 {
		return "strong reverse-alignment", true
	}
	if frame.RSI14 > 85 {
		return "RSI above 85 (climactic)", true
	}
	if frame.VolRatio >= 4 && frame.ChangePct() > 8 {
		return "climactic top (volume blow-off)", true
	}
	if frame.ChangePct() <= -5 {
		return "down more than 5% today", true
	}
	return "", false
}

// v6ExitPlan builds the swing exit plan from the entry price, ATR, and the
// score tier: a higher score buys a wider target and a longer hold window,
// since conviction justifies giving the trade more room.
func v6ExitPlan(frame indicators.Frame, score int) *domain.ExitPlan {
	atr := frame.ATR14
	if atr <= 0 {
		atr = frame.Close * 0.02
	}
	targetMultiple, stopMultiple, maxHoldDays := 2.0, 1.2, 5
	switch {
	case score >= 80:
		targetMultiple, stopMultiple, maxHoldDays = 3.0, 1.2, 10
	case score >= 60:
		targetMultiple, stopMultiple, maxHoldDays = 2.5, 1.2, 7
	}
	return &domain.ExitPlan{
		Entry:           frame.Close,
		TargetPrice:     frame.Close + atr*targetMultiple,
		StopPrice:       frame.Close - atr*stopMultiple,
		TrailingTrigger: frame.Close + atr*targetMultiple*0.6,
		MaxHoldDays:     maxHoldDays,
		ATR:             atr,
	}
}
