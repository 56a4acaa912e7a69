package policy

import (
	"sort"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/marketstatus"
)

// Candidate is one scored ticker being evaluated for a single user at a
// single tick, combining the snapshot row with whatever per-user state the
// hard filters need.
type Candidate struct {
	Row domain.SnapshotRow
}

// RejectReason names which hard filter dropped a candidate, for logging and
// for the dry-run CLI's explain output.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectMarketClosed   RejectReason = "MARKET_CLOSED"
	RejectTradingPaused  RejectReason = "TRADING_DISABLED"
	RejectGapLimit       RejectReason = "GAP_LIMIT_EXCEEDED"
	RejectVolumeFloor    RejectReason = "VOLUME_RATIO_BELOW_FLOOR"
	RejectSlotsFull      RejectReason = "MAX_HOLDINGS_REACHED"
	RejectBlacklisted    RejectReason = "DAILY_BLACKLIST"
	RejectAlreadyHeld    RejectReason = "ALREADY_HELD"
	RejectPreCloseNewBuy RejectReason = "PRE_CLOSE_NO_NEW_BUYS"
	RejectBelowThreshold RejectReason = "BELOW_SCORE_THRESHOLD"
)

// Evaluator applies a user's hard filters and condition DSL to the
// candidate universe, in the fixed order the specification requires (§4.5):
// market hours, trading-enabled, pre-close carve-out, gap limit,
// volume-ratio time floor, slot count, daily blacklist, already-held
// dedupe, then the condition DSL (or the MinBuyScore fallback).
type Evaluator struct {
	Calendar marketstatus.Calendar
}

// EvalState is the per-user, per-tick mutable state the hard filters read:
// open slot count, today's blacklist of tickers with an executed order,
// and current holdings.
type EvalState struct {
	Policy        domain.UserPolicy
	OpenPositions int
	HeldTickers   map[string]bool
	Blacklist     map[string]bool // tickers with an executed order (buy or sell) today
	BuyExpr       Expr            // parsed once per tick, passed in
}

// FilterBuys runs every candidate through the hard filters and the buy
// condition DSL, returning the survivors sorted by (score desc, prior-day
// traded value desc) per §4.5's candidate ordering rule.
func (e Evaluator) FilterBuys(now time.Time, st EvalState, candidates []Candidate) ([]Candidate, map[string]RejectReason) {
	rejects := make(map[string]RejectReason, len(candidates))

	if !e.Calendar.IsOpen(now) {
		for _, c := range candidates {
			rejects[c.Row.Ticker] = RejectMarketClosed
		}
		return nil, rejects
	}
	if !st.Policy.Enabled {
		for _, c := range candidates {
			rejects[c.Row.Ticker] = RejectTradingPaused
		}
		return nil, rejects
	}

	survivors := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if reason := e.rejectBuy(now, st, c); reason != RejectNone {
			rejects[c.Row.Ticker] = reason
			continue
		}
		survivors = append(survivors, c)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		si := score(st.Policy, survivors[i].Row)
		sj := score(st.Policy, survivors[j].Row)
		if si != sj {
			return si > sj
		}
		return survivors[i].Row.PrevAmount > survivors[j].Row.PrevAmount
	})

	return survivors, rejects
}

func (e Evaluator) rejectBuy(now time.Time, st EvalState, c Candidate) RejectReason {
	if e.Calendar.InPreCloseWindow(now) {
		return RejectPreCloseNewBuy
	}
	if st.Policy.GapLimitPct > 0 && c.Row.ChangePct >= st.Policy.GapLimitPct {
		return RejectGapLimit
	}
	floor := st.Policy.MinVolumeRatio
	if floor > 0 {
		adjusted := c.Row.VolumeRatio * e.Calendar.VolumeRatioMultiplier(now)
		if adjusted < floor {
			return RejectVolumeFloor
		}
	}
	if st.Policy.MaxHoldings > 0 && st.OpenPositions >= st.Policy.MaxHoldings {
		return RejectSlotsFull
	}
	if st.Blacklist[c.Row.Ticker] {
		return RejectBlacklisted
	}
	if st.HeldTickers[c.Row.Ticker] {
		return RejectAlreadyHeld
	}
	if !PassesScore(st.Policy, st.BuyExpr, c.Row) {
		return RejectBelowThreshold
	}
	return RejectNone
}

// PassesScore applies the condition DSL when one is configured, falling
// back to the single-version MinBuyScore threshold otherwise (§4.5). This
// is the one fallback rule shared by the buy-side hard filter and the
// pre-close EOD_CLEANUP sell trigger, which re-checks the same buy
// condition against today's row (§4.6 point 6).
func PassesScore(p domain.UserPolicy, expr Expr, row domain.SnapshotRow) bool {
	if !expr.Empty() {
		return expr.Eval(ScoreVars(row.Scores))
	}
	return score(p, row) >= p.MinBuyScore
}

// score reads the score for the user's configured scoring version (falling
// back to 0 if that version never scored this ticker, e.g. DataInsufficient).
func score(p domain.UserPolicy, row domain.SnapshotRow) int {
	if p.ScoreVersion == "" {
		return 0
	}
	return row.Scores[p.ScoreVersion]
}
