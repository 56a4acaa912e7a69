package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dohyunpark/autotrader/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../database/schemas/journal_schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestApplyBuyThenApplySellRoundTrip(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())

	opened := time.Date(2026, 7, 31, 9, 5, 0, 0, time.UTC)
	if err := j.ApplyBuy(domain.Holding{User: 1, Ticker: "005930", Market: "KOSPI", Qty: 10, AvgPrice: 10000, OpenedAt: opened}); err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}

	holdings, err := j.Holdings(1)
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Qty != 10 {
		t.Fatalf("expected a 10-share holding, got %+v", holdings)
	}

	// A second buy averages price across the merged quantity.
	if err := j.ApplyBuy(domain.Holding{User: 1, Ticker: "005930", Market: "KOSPI", Qty: 10, AvgPrice: 12000, OpenedAt: opened}); err != nil {
		t.Fatalf("ApplyBuy (2nd): %v", err)
	}
	holdings, _ = j.Holdings(1)
	if holdings[0].Qty != 20 || holdings[0].AvgPrice != 11000 {
		t.Fatalf("expected merged qty=20 avg=11000, got %+v", holdings[0])
	}

	if err := j.ApplySell(1, "005930", 20); err != nil {
		t.Fatalf("ApplySell: %v", err)
	}
	holdings, _ = j.Holdings(1)
	if len(holdings) != 0 {
		t.Fatalf("expected holding fully closed, got %+v", holdings)
	}
}

func TestApplyBuyPersistsExitPlan(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())
	plan := &domain.ExitPlan{Entry: 10000, TargetPrice: 12000, StopPrice: 9000, MaxHoldDays: 20, ATR: 250}
	err := j.ApplyBuy(domain.Holding{
		User: 1, Ticker: "005930", Qty: 5, AvgPrice: 10000, OpenedAt: time.Now(), ExitPlan: plan,
	})
	if err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}
	holdings, err := j.Holdings(1)
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if holdings[0].ExitPlan == nil || holdings[0].ExitPlan.TargetPrice != 12000 {
		t.Fatalf("expected exit plan to round-trip, got %+v", holdings[0].ExitPlan)
	}
}

func TestDailyBlacklistOnlyCountsExecutedOrders(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())
	today := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	j.RecordOrder(domain.Order{User: 1, Ticker: "A", Side: domain.OrderSideBuy, Status: domain.OrderStatusExecuted, PlacedAt: today})
	j.RecordOrder(domain.Order{User: 1, Ticker: "B", Side: domain.OrderSideBuy, Status: domain.OrderStatusRejected, PlacedAt: today})

	bl, err := j.DailyBlacklist(1, "2026-07-31")
	if err != nil {
		t.Fatalf("DailyBlacklist: %v", err)
	}
	if !bl["A"] {
		t.Fatalf("expected A to be blacklisted, got %+v", bl)
	}
	if bl["B"] {
		t.Fatalf("expected B (rejected, not executed) to be absent, got %+v", bl)
	}
}

func TestRecordAlertDedupesPerDay(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())
	a := domain.AlertHistory{User: 1, Ticker: "005930", Kind: domain.AlertBroker, Day: "2026-07-31", Detail: "x", At: time.Now()}
	if err := j.RecordAlert(a); err != nil {
		t.Fatalf("RecordAlert: %v", err)
	}
	if err := j.RecordAlert(a); err != nil {
		t.Fatalf("RecordAlert (dup): %v", err)
	}

	var n int
	db := j.db
	if err := db.QueryRow(`SELECT COUNT(*) FROM alert_history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected dedupe to collapse to 1 row, got %d", n)
	}
}

func TestSuggestionLifecycle(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	s := domain.Suggestion{
		ID: "sug-1", User: 1, Ticker: "005930", Score: 80, RecommendedPrice: 10000,
		CreatedAt: now, ExpiresAt: now.Add(4 * time.Hour),
	}
	if err := j.CreateSuggestion(s); err != nil {
		t.Fatalf("CreateSuggestion: %v", err)
	}

	pending, err := j.PendingForUser(1)
	if err != nil {
		t.Fatalf("PendingForUser: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != domain.SuggestionPending {
		t.Fatalf("expected one pending suggestion, got %+v", pending)
	}

	if err := j.Approve("sug-1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	pending, _ = j.PendingForUser(1)
	if len(pending) != 0 {
		t.Fatalf("expected no pending suggestions after approval, got %+v", pending)
	}

	if err := j.Approve("sug-1"); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows on double-approve, got %v", err)
	}
}

func TestExpirePendingPastTTL(t *testing.T) {
	j := New(testDB(t), zerolog.Nop())
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	j.CreateSuggestion(domain.Suggestion{ID: "expired", User: 1, Ticker: "A", CreatedAt: now.Add(-5 * time.Hour), ExpiresAt: now.Add(-1 * time.Hour)})
	j.CreateSuggestion(domain.Suggestion{ID: "fresh", User: 1, Ticker: "B", CreatedAt: now, ExpiresAt: now.Add(4 * time.Hour)})

	n, err := j.ExpirePending(now)
	if err != nil {
		t.Fatalf("ExpirePending: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one suggestion to expire, got %d", n)
	}
	pending, _ := j.PendingForUser(1)
	if len(pending) != 1 || pending[0].ID != "fresh" {
		t.Fatalf("expected only 'fresh' to remain pending, got %+v", pending)
	}
}
