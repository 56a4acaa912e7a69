package scorers

import (
	"github.com/dohyunpark/autotrader/internal/indicators"
	"github.com/dohyunpark/autotrader/internal/scoring"
)

// V10 scores a ticker by how hard its sector leader just moved and how
// correlated the two have historically been: a strongly correlated follower
// that hasn't caught up yet to a leader's move is the thesis, so it leans
// almost entirely on extras.LeaderChangePct/LeaderCorrelation rather than
// the ticker's own indicator frame. A ticker with no configured leader
// reference has nothing for the strategy to score against, so it
// disqualifies outright rather than falling back to a bare technical read.
type V10 struct{}

func (V10) Version() string  { return "v10" }
func (V10) MinDataBars() int { return 20 }

func (V10) Score(frame indicators.Frame, extras scoring.Extras) scoring.Result {
	leaderKey, leaderPct, hasLeader := bestLeaderMove(extras.LeaderChangePct)
	if !hasLeader {
		return scoring.Result{
			Score:            0,
			Version:          "v10",
			Disqualified:     true,
			DisqualifyReason: "no leader reference map configured for this ticker",
			Close:            frame.Close,
			ChangePct:        frame.ChangePct(),
			Volume:           frame.Volume,
			TradingValue:     frame.TradingValue,
		}
	}

	var signals []string
	const base = 50

	leaderMovement := 0
	correlation := 0
	gap := 0

	corr := extras.LeaderCorrelation[leaderKey]

	switch {
	case leaderPct >= 5:
		leaderMovement = 35
		signals = append(signals, "LEADER_STRONG_MOVE")
	case leaderPct >= 2:
		leaderMovement = 20
		signals = append(signals, "LEADER_MODERATE_MOVE")
	case leaderPct > 0:
		leaderMovement = 8
		signals = append(signals, "LEADER_MILD_MOVE")
	}

	switch {
	case corr >= 0.8:
		correlation = 25
		signals = append(signals, "CORRELATION_HIGH")
	case corr >= 0.6:
		correlation = 15
		signals = append(signals, "CORRELATION_MODERATE")
	case corr >= 0.4:
		correlation = 5
		signals = append(signals, "CORRELATION_LOW")
	}

	followerPct := frame.ChangePct()
	catchUpGap := leaderPct - followerPct
	switch {
	case catchUpGap >= 4:
		gap = 25
		signals = append(signals, "CATCH_UP_GAP_WIDE")
	case catchUpGap >= 2:
		gap = 15
		signals = append(signals, "CATCH_UP_GAP_MODERATE")
	case catchUpGap > 0:
		gap = 5
		signals = append(signals, "CATCH_UP_GAP_SMALL")
	}

	technical := 0
	if frame.MAStatus == indicators.MAAligned {
		technical += 8
		signals = append(signals, "MA_ALIGNED")
	}
	if frame.RSI14 >= 40 && frame.RSI14 <= 70 {
		technical += 7
		signals = append(signals, "RSI_NEUTRAL_TO_BULLISH")
	}
	technical = clampInt(technical, 0, 15)

	groups := map[string]int{
		"leader_movement": clampInt(leaderMovement, 0, 35),
		"correlation":     clampInt(correlation, 0, 25),
		"catch_up_gap":    clampInt(gap, 0, 25),
		"technical":       technical,
	}

	total := clampInt(base+leaderMovement+correlation+gap+technical, 0, 100)

	return scoring.Result{
		Score:        total,
		Version:      "v10",
		Signals:      signals,
		Groups:       groups,
		Close:        frame.Close,
		ChangePct:    frame.ChangePct(),
		Volume:       frame.Volume,
		TradingValue: frame.TradingValue,
	}
}

// bestLeaderMove picks the leader with the largest absolute move from the
// extras map, since a ticker may be configured against more than one
// sector leader and the strongest signal should drive the score.
func bestLeaderMove(moves map[string]float64) (key string, pct float64, ok bool) {
	if len(moves) == 0 {
		return "", 0, false
	}
	best := -1.0
	for k, v := range moves {
		abs := v
		if abs < 0 {
			abs = -abs
		}
		if abs > best {
			best, key, pct, ok = abs, k, v, true
		}
	}
	return key, pct, ok
}
