// Package controller implements the per-user tick orchestrator (§4.10):
// sells before buys within one tick, sequential per user, dispatched
// concurrently across users by the scheduler.
package controller

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/marketstatus"
	"github.com/dohyunpark/autotrader/internal/policy"
	"github.com/dohyunpark/autotrader/internal/risk"
	"github.com/dohyunpark/autotrader/internal/snapshot"
)

// Controller runs one user's tick against a shared snapshot. One instance
// is safe for concurrent use across different users; per-user state lives
// entirely in the journal and the broker executor, not on Controller.
type Controller struct {
	Executor  domain.Executor
	Journal   *journal.Journal
	Calendar  marketstatus.Calendar
	MacroMult float64 // previous-session NASDAQ-derived multiplier, shared across users on this tick
	Clock     domain.Clock
	Log       zerolog.Logger
}

// TickResult summarises one user-tick's outcome for the scheduler's
// logging and alerting.
type TickResult struct {
	User       int64
	Sells      []SellOutcome
	Buys       []BuyOutcome
	Suggested  []string
	Err        error
}

// SellOutcome records one executed or attempted sell.
type SellOutcome struct {
	Ticker string
	Reason risk.SellReason
	OK     bool
	Detail string
}

// BuyOutcome records one executed or attempted buy.
type BuyOutcome struct {
	Ticker string
	Qty    float64
	OK     bool
	Detail string
}

// RunUserTick executes the full §4.10 pseudocode for one user: expire
// stale suggestions, evaluate sells across every holding, then — if the
// tick is inside trading hours and slots remain — filter, rank, and size
// new buys. Sells and buys for the same ticker never both fire: a sell
// locks that ticker out of this tick's buy pass.
func (c *Controller) RunUserTick(user domain.User, snap snapshot.Snapshot) TickResult {
	now := c.Clock.Now()
	result := TickResult{User: user.ID}

	if !user.Policy.Enabled {
		return result
	}
	if user.Policy.Mode == domain.ModeManual {
		return result
	}

	if _, err := c.Journal.ExpirePending(now); err != nil {
		c.Log.Warn().Int64("user", user.ID).Err(err).Msg("failed to expire stale suggestions")
	}

	holdings, err := c.Executor.GetHoldings(user.ID)
	if err != nil {
		result.Err = fmt.Errorf("get holdings: %w", err)
		return result
	}
	cash, err := c.Executor.GetCash(user.ID)
	if err != nil {
		result.Err = fmt.Errorf("get cash: %w", err)
		return result
	}

	sellExpr, err := policy.Parse(user.Policy.SellConditions)
	if err != nil {
		result.Err = fmt.Errorf("%w: sell_conditions: %v", domain.ErrConfig, err)
		return result
	}
	buyExpr, err := policy.Parse(user.Policy.BuyConditions)
	if err != nil {
		result.Err = fmt.Errorf("%w: buy_conditions: %v", domain.ErrConfig, err)
		return result
	}

	locked := make(map[string]risk.SellReason, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		row, ok := snap.Rows[h.Ticker]
		if !ok {
			continue // ticker absent from a degraded snapshot: do not touch the blacklist (§5)
		}

		ctx := risk.SellContext{
			Now:          now,
			Row:          row.ToSnapshotRow(),
			Policy:       user.Policy,
			SellExpr:     sellExpr,
			BuyExpr:      buyExpr,
			InPreClose:   c.Calendar.InPreCloseWindow(now),
			CloseBelowMA: row.BelowSMA20,
		}
		trigger := risk.EvaluateSell(h, ctx)
		if trigger == risk.SellNone {
			if h.EverAboveSMA20 {
				// Persist the latch bit even when no sell fires this tick.
				if err := c.Journal.SetLatch(user.ID, h.Ticker, true); err != nil {
					c.Log.Warn().Err(err).Str("ticker", h.Ticker).Msg("failed to persist MA-20 latch")
				}
			}
			continue
		}

		locked[h.Ticker] = trigger
		ok, brokerID, detail, sellErr := c.Executor.Sell(user.ID, h.Ticker, h.Qty, 0)
		outcome := SellOutcome{Ticker: h.Ticker, Reason: trigger, OK: ok, Detail: detail}
		result.Sells = append(result.Sells, outcome)
		if sellErr != nil {
			c.Log.Warn().Int64("user", user.ID).Str("ticker", h.Ticker).Err(sellErr).Msg("sell failed")
			continue
		}
		if ok {
			if _, err := c.Journal.RecordOrder(domain.Order{
				User: user.ID, Ticker: h.Ticker, Side: domain.OrderSideSell, Qty: h.Qty,
				PlacedAt: now, BrokerOrderID: brokerID, Status: domain.OrderStatusExecuted, Reason: string(trigger),
			}); err != nil {
				c.Log.Warn().Err(err).Msg("failed to record sell order")
			}
			if err := c.Journal.ApplySell(user.ID, h.Ticker, h.Qty); err != nil {
				c.Log.Warn().Err(err).Msg("failed to apply sell to holdings")
			}
			cash, _ = c.Executor.GetCash(user.ID)
		}
	}

	if !c.Calendar.IsOpen(now) || c.Calendar.InPreCloseWindow(now) || cash <= 0 {
		c.recordDailyPerf(user, cash, holdings)
		return result
	}
	openSlots := user.Policy.MaxHoldings - len(holdings)
	if openSlots <= 0 {
		c.recordDailyPerf(user, cash, holdings)
		return result
	}

	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[h.Ticker] = true
	}
	blacklist, err := c.Journal.DailyBlacklist(user.ID, now.Format("2006-01-02"))
	if err != nil {
		c.Log.Warn().Err(err).Msg("failed to load daily blacklist")
		blacklist = map[string]bool{}
	}

	evaluator := policy.Evaluator{Calendar: c.Calendar}
	candidates := make([]policy.Candidate, 0, len(snap.Rows))
	for ticker, row := range snap.Rows {
		if locked[ticker] != risk.SellNone {
			continue // sell wins: same-tick buy for a just-sold ticker is suppressed
		}
		candidates = append(candidates, policy.Candidate{Row: row.ToSnapshotRow()})
	}

	survivors, _ := evaluator.FilterBuys(now, policy.EvalState{
		Policy: user.Policy, OpenPositions: len(holdings), HeldTickers: held,
		Blacklist: blacklist, BuyExpr: buyExpr,
	}, candidates)

	budget := risk.Budget(cash, len(holdings), user.Policy, c.MacroMult)
	for _, cand := range survivors {
		if len(holdings) >= user.Policy.MaxHoldings || cash < cand.Row.Close {
			break
		}
		qty := risk.Quantity(budget, cand.Row.Close)
		if qty == 0 {
			continue
		}

		if user.Policy.Mode == domain.ModeSemi {
			sug := domain.Suggestion{
				ID: uuid.NewString(), User: user.ID, Ticker: cand.Row.Ticker, Score: cand.Row.Scores[user.Policy.ScoreVersion],
				RecommendedPrice: cand.Row.Close, CreatedAt: now,
				ExpiresAt: now.Add(time.Duration(user.Policy.ExpireHours * float64(time.Hour))),
			}
			if err := c.Journal.CreateSuggestion(sug); err != nil {
				c.Log.Warn().Err(err).Str("ticker", cand.Row.Ticker).Msg("failed to create suggestion")
				continue
			}
			result.Suggested = append(result.Suggested, cand.Row.Ticker)
			continue
		}

		ok, brokerID, detail, buyErr := c.Executor.Buy(user.ID, cand.Row.Ticker, qty, 0)
		result.Buys = append(result.Buys, BuyOutcome{Ticker: cand.Row.Ticker, Qty: qty, OK: ok, Detail: detail})
		if buyErr != nil {
			c.Log.Warn().Int64("user", user.ID).Str("ticker", cand.Row.Ticker).Err(buyErr).Msg("buy failed")
			continue
		}
		if !ok {
			continue
		}
		if _, err := c.Journal.RecordOrder(domain.Order{
			User: user.ID, Ticker: cand.Row.Ticker, Side: domain.OrderSideBuy, Qty: qty, Price: cand.Row.Close,
			PlacedAt: now, BrokerOrderID: brokerID, Status: domain.OrderStatusExecuted, Reason: "BUY_CONDITION",
		}); err != nil {
			c.Log.Warn().Err(err).Msg("failed to record buy order")
		}
		if err := c.Journal.ApplyBuy(domain.Holding{
			User: user.ID, Ticker: cand.Row.Ticker, Market: cand.Row.Market, Qty: qty,
			AvgPrice: cand.Row.Close, OpenedAt: now,
		}); err != nil {
			c.Log.Warn().Err(err).Msg("failed to apply buy to holdings")
		}
		cash -= qty * cand.Row.Close
		holdings = append(holdings, domain.Holding{User: user.ID, Ticker: cand.Row.Ticker, Qty: qty, AvgPrice: cand.Row.Close, OpenedAt: now})
	}

	c.recordDailyPerf(user, cash, holdings)
	return result
}

func (c *Controller) recordDailyPerf(user domain.User, cash float64, holdings []domain.Holding) {
	holdingsValue := 0.0
	for _, h := range holdings {
		holdingsValue += h.Qty * h.AvgPrice
	}
	perf := domain.DailyPerf{
		User: user.ID, Date: c.Clock.Now().Format("2006-01-02"),
		TotalAssets: cash + holdingsValue, Cash: cash, HoldingsValue: holdingsValue,
		Invested: holdingsValue, NHoldings: len(holdings),
	}
	if err := c.Journal.RecordDailyPerf(perf); err != nil {
		c.Log.Warn().Int64("user", user.ID).Err(err).Msg("failed to record daily performance")
	}
}
