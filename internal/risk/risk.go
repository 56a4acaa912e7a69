// Package risk implements the stateless position-sizing and exit-trigger
// calculator described in §4.6 of the specification: budget/quantity
// sizing with the macro-regime multiplier, and the ordered sell-trigger
// evaluation every open holding runs through each tick.
package risk

import (
	"math"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/policy"
)

// MacroMultiplier maps the previous session's NASDAQ change (a percentage,
// e.g. -2.5 for -2.5%) to the global position-size scalar applied uniformly
// across every user on that tick.
func MacroMultiplier(prevNasdaqChangePct float64) float64 {
	switch {
	case prevNasdaqChangePct <= -3:
		return 0.3
	case prevNasdaqChangePct <= -2:
		return 0.5
	case prevNasdaqChangePct <= -1:
		return 0.7
	default:
		return 1.0
	}
}

// Budget computes the per-ticker cash budget for a new buy:
// min(configured per-ticker budget, cash spread evenly across remaining
// open slots), scaled by the macro multiplier.
func Budget(cash float64, openHoldings int, p domain.UserPolicy, macroMult float64) float64 {
	remainingSlots := p.MaxHoldings - openHoldings
	if remainingSlots < 1 {
		remainingSlots = 1
	}
	perSlot := cash / float64(remainingSlots)
	budget := p.PerTickerBudget
	if perSlot < budget {
		budget = perSlot
	}
	return budget * macroMult
}

// Quantity returns the whole-share quantity a budget buys at a given price.
// A non-positive price or budget yields 0.
func Quantity(budget, price float64) float64 {
	if price <= 0 || budget <= 0 {
		return 0
	}
	return math.Floor(budget / price)
}

// SellReason names which sell trigger fired, matching the tokens the
// journal and alerting path record verbatim.
type SellReason string

const (
	SellNone       SellReason = ""
	SellStopLoss   SellReason = "STOP_LOSS"
	SellCondition  SellReason = "SELL_CONDITION"
	SellScoreDecay SellReason = "SCORE_DECAY"
	SellMA20Break  SellReason = "MA20_BREAK"
	SellTimeStop   SellReason = "TIME_STOP"
	SellEODCleanup SellReason = "EOD_CLEANUP"
	SellExitPlan   SellReason = "EXIT_PLAN"
)

// SellContext bundles the per-tick inputs EvaluateSell needs beyond the
// holding itself: the ticker's current snapshot row, the user's policy,
// whether the current tick is inside the pre-close carve-out, and the
// parsed sell/buy condition expressions (buy is only consulted for the
// pre-close tidy check).
type SellContext struct {
	Now          time.Time
	Row          domain.SnapshotRow
	Policy       domain.UserPolicy
	SellExpr     policy.Expr
	BuyExpr      policy.Expr
	InPreClose   bool
	CloseBelowMA bool // today's close is below SMA-20
}

// EvaluateSell runs the ordered sell-trigger checks from §4.6 against one
// holding and returns the first trigger that fires, or SellNone if the
// position should be kept this tick. h.EverAboveSMA20 is mutated in place
// to arm the MA-20-break latch once the close has traded above SMA-20.
func EvaluateSell(h *domain.Holding, ctx SellContext) SellReason {
	if ctx.Row.Close > 0 && h.AvgPrice > 0 {
		profitRate := (ctx.Row.Close - h.AvgPrice) / h.AvgPrice
		if profitRate <= -math.Abs(ctx.Policy.StopLossRate) {
			return SellStopLoss
		}
	}

	if !ctx.SellExpr.Empty() && ctx.SellExpr.Eval(policy.ScoreVars(ctx.Row.Scores)) {
		return SellCondition
	}

	if ctx.Policy.ScoreVersion != "" {
		if score, ok := ctx.Row.Scores[ctx.Policy.ScoreVersion]; ok && score <= ctx.Policy.SellScore {
			return SellScoreDecay
		}
	}

	aboveMA := !ctx.CloseBelowMA
	if aboveMA {
		h.EverAboveSMA20 = true
	} else if h.EverAboveSMA20 {
		return SellMA20Break
	}

	if ctx.Policy.MaxHoldDays > 0 {
		daysHeld := int(ctx.Now.Sub(h.OpenedAt).Hours() / 24)
		if daysHeld > ctx.Policy.MaxHoldDays {
			return SellTimeStop
		}
	}

	if ctx.InPreClose {
		if !policy.PassesScore(ctx.Policy, ctx.BuyExpr, ctx.Row) {
			return SellEODCleanup
		}
	}

	if h.ExitPlan != nil {
		if reason := evaluateExitPlan(*h.ExitPlan, h.OpenedAt, ctx); reason != SellNone {
			return reason
		}
	}

	return SellNone
}

// evaluateExitPlan fires target/stop/trailing/time-stop triggers for a
// holding carrying a swing-strategy ExitPlan (v6/v7), per §4.6 point 7.
// openedAt is the holding's own open timestamp; ExitPlan.Entry is the entry
// price, not a time, so days-held is computed from the holding.
func evaluateExitPlan(plan domain.ExitPlan, openedAt time.Time, ctx SellContext) SellReason {
	close := ctx.Row.Close
	if close <= 0 {
		return SellNone
	}
	if close <= plan.StopPrice {
		return SellExitPlan
	}
	if close >= plan.TargetPrice {
		return SellExitPlan
	}
	if plan.TrailingTrigger > 0 && close >= plan.TrailingTrigger {
		trail := plan.TrailingTrigger - plan.ATR
		if close <= trail {
			return SellExitPlan
		}
	}
	if plan.MaxHoldDays > 0 {
		daysHeld := int(ctx.Now.Sub(openedAt).Hours() / 24)
		if daysHeld > plan.MaxHoldDays {
			return SellExitPlan
		}
	}
	return SellNone
}

// Locked reports whether a ticker has a pending sell this tick, in which
// case a same-tick buy for the same ticker must be suppressed: the sell
// wins (§4.6 "Locked").
func Locked(sells map[string]SellReason, ticker string) bool {
	reason, ok := sells[ticker]
	return ok && reason != SellNone
}
