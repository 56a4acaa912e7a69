package risk

import (
	"testing"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/policy"
)

func TestMacroMultiplierBuckets(t *testing.T) {
	cases := []struct {
		pct  float64
		want float64
	}{
		{-5, 0.3}, {-3, 0.3}, {-2.5, 0.5}, {-2, 0.5}, {-1.5, 0.7}, {-1, 0.7}, {-0.5, 1.0}, {2, 1.0},
	}
	for _, c := range cases {
		if got := MacroMultiplier(c.pct); got != c.want {
			t.Fatalf("MacroMultiplier(%v) = %v, want %v", c.pct, got, c.want)
		}
	}
}

func TestBudgetSplitsAcrossRemainingSlots(t *testing.T) {
	p := domain.UserPolicy{PerTickerBudget: 10_000_000, MaxHoldings: 5}
	// 3 slots remain (5-2), cash 9M split evenly -> 3M/slot, below the per-ticker cap.
	got := Budget(9_000_000, 2, p, 1.0)
	if got != 3_000_000 {
		t.Fatalf("expected 3,000,000 budget, got %v", got)
	}
}

func TestBudgetCapsAtConfiguredPerTickerBudget(t *testing.T) {
	p := domain.UserPolicy{PerTickerBudget: 1_000_000, MaxHoldings: 5}
	got := Budget(100_000_000, 0, p, 1.0)
	if got != 1_000_000 {
		t.Fatalf("expected budget capped at 1,000,000, got %v", got)
	}
}

func TestBudgetAppliesMacroMultiplier(t *testing.T) {
	p := domain.UserPolicy{PerTickerBudget: 1_000_000, MaxHoldings: 5}
	got := Budget(100_000_000, 0, p, 0.5)
	if got != 500_000 {
		t.Fatalf("expected macro-scaled budget 500,000, got %v", got)
	}
}

func TestQuantityFloorsAndHandlesZero(t *testing.T) {
	if got := Quantity(1_000_000, 333_000); got != 3 {
		t.Fatalf("expected floor(1,000,000/333,000)=3, got %v", got)
	}
	if got := Quantity(0, 1000); got != 0 {
		t.Fatalf("expected zero budget to yield zero qty, got %v", got)
	}
	if got := Quantity(1000, 0); got != 0 {
		t.Fatalf("expected zero price to yield zero qty, got %v", got)
	}
}

func holdingAt(price float64, opened time.Time) *domain.Holding {
	return &domain.Holding{Ticker: "005930", AvgPrice: price, Qty: 10, OpenedAt: opened}
}

func TestEvaluateSellStopLossFiresFirst(t *testing.T) {
	h := holdingAt(10000, time.Now())
	ctx := SellContext{
		Now:    time.Now(),
		Row:    domain.SnapshotRow{Close: 9000, Scores: map[string]int{"v1": 90}},
		Policy: domain.UserPolicy{StopLossRate: 0.07, ScoreVersion: "v1", SellScore: 10},
	}
	if got := EvaluateSell(h, ctx); got != SellStopLoss {
		t.Fatalf("expected SellStopLoss for a -10%% move against a 7%% stop, got %v", got)
	}
}

func TestEvaluateSellConditionDSL(t *testing.T) {
	h := holdingAt(10000, time.Now())
	expr, err := policy.Parse("V1<=20")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := SellContext{
		Now:      time.Now(),
		Row:      domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 15}},
		Policy:   domain.UserPolicy{StopLossRate: 0.5},
		SellExpr: expr,
	}
	if got := EvaluateSell(h, ctx); got != SellCondition {
		t.Fatalf("expected SellCondition, got %v", got)
	}
}

func TestEvaluateSellScoreDecay(t *testing.T) {
	h := holdingAt(10000, time.Now())
	ctx := SellContext{
		Now:    time.Now(),
		Row:    domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 20}},
		Policy: domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 30},
	}
	if got := EvaluateSell(h, ctx); got != SellScoreDecay {
		t.Fatalf("expected SellScoreDecay, got %v", got)
	}
}

func TestEvaluateSellMA20BreakRequiresPriorLatch(t *testing.T) {
	h := holdingAt(10000, time.Now())
	ctx := SellContext{
		Now:          time.Now(),
		Row:          domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 90}},
		Policy:       domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 10},
		CloseBelowMA: true,
	}
	// Latch never armed yet: a close below MA-20 alone does not trigger a sell.
	if got := EvaluateSell(h, ctx); got != SellNone {
		t.Fatalf("expected no trigger before the latch arms, got %v", got)
	}
	if h.EverAboveSMA20 {
		t.Fatalf("latch should not have armed on a below-MA close")
	}

	// Arm the latch with an above-MA tick, then break below on the next tick.
	ctx.CloseBelowMA = false
	EvaluateSell(h, ctx)
	if !h.EverAboveSMA20 {
		t.Fatalf("expected latch to arm on an above-MA close")
	}
	ctx.CloseBelowMA = true
	if got := EvaluateSell(h, ctx); got != SellMA20Break {
		t.Fatalf("expected SellMA20Break once latch is armed, got %v", got)
	}
}

func TestEvaluateSellTimeStop(t *testing.T) {
	h := holdingAt(10000, time.Now().Add(-10*24*time.Hour))
	ctx := SellContext{
		Now:    time.Now(),
		Row:    domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 90}},
		Policy: domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 10, MaxHoldDays: 5},
	}
	if got := EvaluateSell(h, ctx); got != SellTimeStop {
		t.Fatalf("expected SellTimeStop after 10 days against a 5-day max hold, got %v", got)
	}
}

func TestEvaluateSellEODCleanupOnlyInPreClose(t *testing.T) {
	h := holdingAt(10000, time.Now())
	buyExpr, _ := policy.Parse("V1>=60")
	ctx := SellContext{
		Now:        time.Now(),
		Row:        domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 10}},
		Policy:     domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 5},
		InPreClose: true,
		BuyExpr:    buyExpr,
	}
	if got := EvaluateSell(h, ctx); got != SellEODCleanup {
		t.Fatalf("expected SellEODCleanup when buy conditions no longer hold, got %v", got)
	}
}

func TestEvaluateSellEODCleanupFallsBackToScoreThresholdWhenBuyDSLEmpty(t *testing.T) {
	// No buy_conditions configured: §4.5's fallback is score_version >= min_buy_score.
	h := holdingAt(10000, time.Now())
	ctx := SellContext{
		Now:        time.Now(),
		Row:        domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 90}},
		Policy:     domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 5, MinBuyScore: 60},
		InPreClose: true,
	}
	if got := EvaluateSell(h, ctx); got != SellNone {
		t.Fatalf("expected the position kept when the score still clears MinBuyScore, got %v", got)
	}

	ctx.Row = domain.SnapshotRow{Close: 10100, Scores: map[string]int{"v1": 40}}
	if got := EvaluateSell(h, ctx); got != SellEODCleanup {
		t.Fatalf("expected SellEODCleanup once the score falls below MinBuyScore, got %v", got)
	}
}

func TestEvaluateSellKeepsPositionWhenNoTriggerFires(t *testing.T) {
	h := holdingAt(10000, time.Now())
	ctx := SellContext{
		Now:    time.Now(),
		Row:    domain.SnapshotRow{Close: 10500, Scores: map[string]int{"v1": 90}},
		Policy: domain.UserPolicy{StopLossRate: 0.5, ScoreVersion: "v1", SellScore: 10},
	}
	if got := EvaluateSell(h, ctx); got != SellNone {
		t.Fatalf("expected no sell trigger, got %v", got)
	}
}

func TestLocked(t *testing.T) {
	sells := map[string]SellReason{"005930": SellStopLoss}
	if !Locked(sells, "005930") {
		t.Fatalf("expected 005930 to be locked")
	}
	if Locked(sells, "000660") {
		t.Fatalf("expected 000660 to be unlocked")
	}
}
