package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V35 is V3 enhanced with a short-interest filter and an
// institutional-net-buy disclosure bonus: a short-balance ratio below 2%
// together with foreign net buying on every day of ForeignNetBuy5D is
// flagged as short covering rather than genuine demand and zeroes the
// supply/demand group, while five straight days of institutional net
// buying add a 15-point confirmation bonus to the accumulation group.
type V35 struct{}

func (V35) Version() string  { return "v3.5" }
func (V35) MinDataBars() int { return 60 }

func (V35) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	if frame.MAStatus == indicators.MAReverseAligned {
		return reverseAlignedDisqualified("v3.5", frame)
	}

	var signals []string
	trend := scoreTrendBase(frame, &signals, 5)
	wyckoff := scoreWyckoffPhase(frame, &signals)
	accumulation := scoreAccumulation(frame, &signals)
	supply := scoreSupplyDemand(extras, &signals)
	volume := scoreAccumulationVolume(frame, &signals)

	if isInstitutionalNetBuyStreak(extras.InstitutionNetBuy5D, 5) {
		signals = append(signals, "DISCLOSURE_INSTITUTION_CONFIRMED")
		accumulation += 15
	}

	groups := map[string]int{
		"disclosure":   clampInt(boolToScore(len(extras.InstitutionNetBuy5D) > 0, 15), 0, 15),
		"wyckoff":      clampInt(wyckoff, 0, 20),
		"accumulation": clampInt(accumulation, 0, 25),
		"supply":       clampInt(supply, 0, 20),
		"volume":       clampInt(volume, 0, 15),
		"trend":        clampInt(trend, 0, 5),
	}
	total := 0
	for _, v := range groups {
		total += v
	}
	return scoring.Result{
		Score:        clampInt(total, 0, 100),
		Version:      "v3.5",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

func scoreWyckoffPhase(frame indicators.Frame, signals *[]string) int {
	switch {
	case frame.BBPosition <= 0.2 && frame.VolRatio >= 1.5:
		*signals = append(*signals, "WYCKOFF_PHASE_C")
		return 20
	case frame.BBPosition <= 0.4 && frame.SMA20Slope >= 0:
		*signals = append(*signals, "WYCKOFF_PHASE_B")
		return 10
	default:
		return 0
	}
}

func scoreSupplyDemand(extras scoring.Extras, signals *[]string) int {
	if extras.ShortBalanceRatio > 0 && isRising(extras.ForeignNetBuy5D) && extras.ShortBalanceRatio < 0.02 {
		// a low short balance alongside a foreign net-buy streak reads as
		// short covering, not real demand; the caller should have already
		// trimmed ForeignNetBuy5D to reflect price direction context.
		*signals = append(*signals, "SHORT_COVER_SUSPECTED")
		return 0
	}
	total := 0
	if isRising(extras.ForeignNetBuy5D) {
		total += 10
		*signals = append(*signals, "FOREIGN_NET_BUY_STREAK")
	}
	if isRising(extras.InstitutionNetBuy5D) {
		total += 10
		*signals = append(*signals, "INSTITUTION_NET_BUY_STREAK")
	}
	return total
}

func isRising(series []float64) bool {
	if len(series) < 2 {
		return false
	}
	for _, v := range series {
		if v <= 0 {
			return false
		}
	}
	return true
}

func isInstitutionalNetBuyStreak(series []float64, days int) bool {
	if len(series) < days {
		return false
	}
	for _, v := range series[len(series)-days:] {
		if v <= 0 {
			return false
		}
	}
	return true
}

func boolToScore(b bool, points int) int {
	if b {
		return points
	}
	return 0
}
