package scheduler

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/marketstatus"
	"github.com/dohyunpark/autotrader/internal/snapshot"
	"github.com/dohyunpark/autotrader/internal/users"
)

type fakeExecutor struct {
	cash     float64
	holdings []domain.Holding
	buys     []string
}

func (f *fakeExecutor) GetHoldings(user int64) ([]domain.Holding, error) { return f.holdings, nil }
func (f *fakeExecutor) GetCash(user int64) (float64, error)              { return f.cash, nil }
func (f *fakeExecutor) GetPending(user int64) ([]domain.Order, error)    { return nil, nil }
func (f *fakeExecutor) GetPrice(ticker string) (float64, error)          { return 1000, nil }

func (f *fakeExecutor) Buy(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	f.buys = append(f.buys, ticker)
	f.cash -= qty * price
	f.holdings = append(f.holdings, domain.Holding{User: user, Ticker: ticker, Qty: qty, AvgPrice: price, OpenedAt: time.Now()})
	return true, "ORD-" + ticker, "filled", nil
}

func (f *fakeExecutor) Sell(user int64, ticker string, qty, price float64) (bool, string, string, error) {
	out := f.holdings[:0]
	for _, h := range f.holdings {
		if h.Ticker != ticker {
			out = append(out, h)
		}
	}
	f.holdings = out
	return true, "ORD-" + ticker, "filled", nil
}

func testJournal(t *testing.T) *journal.Journal {
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
	return journal.New(db, zerolog.Nop())
}

func testUsers(t *testing.T) (*users.Repository, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	schema, err := os.ReadFile("../database/schemas/users_schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return users.New(db, zerolog.Nop()), db
}

func insertUser(t *testing.T, db *sql.DB, enabled bool, buyConditions string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (broker_api_key, broker_api_secret, is_paper_account) VALUES ('', '', 1)`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	en := 0
	if enabled {
		en = 1
	}
	_, err = db.Exec(`INSERT INTO user_settings (user_id, mode, enabled, score_version, buy_conditions, sell_conditions,
		min_buy_score, sell_score, stop_loss_rate, take_profit_rate, max_holdings, max_daily_trades,
		max_hold_days, per_ticker_budget, min_volume_ratio, gap_limit_pct, expire_hours, market_cap_ceiling)
		VALUES (?, 'auto', ?, 'v1', ?, 'V1<=30', 60, 30, 0.07, 0.15, 5, 10, 10, 1000000, 0.0, 15.0, 4.0, NULL)`,
		id, en, buyConditions)
	if err != nil {
		t.Fatalf("insert user_settings: %v", err)
	}
	return id
}

func testCalendar() marketstatus.Calendar {
	return marketstatus.Default(time.Local)
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func sampleSnapshot(tick time.Time) snapshot.Snapshot {
	return snapshot.Snapshot{
		TickTS: tick,
		Rows: map[string]snapshot.Row{
			"005930": {
				Code: "005930", Name: "Samsung", Market: domain.Market("KOSPI"),
				Open: 70000, High: 71000, Low: 69500, Close: 70500, PrevClose: 69000,
				ChangePct: 2.17, Volume: 1_000_000, VolumeRatio: 3.0, PrevAmount: 5_000_000_000,
				Scores: map[string]int{"v1": 80, "v2": 0, "v3": 40, "v3.5": 40, "v4": 30, "v5": 60, "v6": 10, "v7": 20, "v8": 5, "v10": 0},
			},
		},
	}
}

func TestRunFromSnapshotDispatchesOnlyEnabledUsers(t *testing.T) {
	repo, db := testUsers(t)
	insertUser(t, db, true, "V1>=60")
	insertUser(t, db, false, "V1>=60")

	tick := time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local)
	exec := &fakeExecutor{cash: 10_000_000}
	j := &TickJob{
		Calendar:      testCalendar(),
		Users:         repo,
		Journal:       testJournal(t),
		PaperExecutor: exec,
		Deadline:      10 * time.Second,
		Clock:         fixedClock{tick},
		Log:           zerolog.Nop(),
	}

	if err := j.RunFromSnapshot(sampleSnapshot(tick)); err != nil {
		t.Fatalf("RunFromSnapshot: %v", err)
	}
	if len(exec.buys) != 1 || exec.buys[0] != "005930" {
		t.Fatalf("expected exactly one buy for the enabled user, got %+v", exec.buys)
	}
}

func TestRunUserLoadsDisabledUserButTickPlacesNoBuys(t *testing.T) {
	repo, db := testUsers(t)
	id := insertUser(t, db, false, "V1>=60")

	tick := time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local)
	exec := &fakeExecutor{cash: 10_000_000}
	j := &TickJob{
		Calendar:      testCalendar(),
		Users:         repo,
		Journal:       testJournal(t),
		PaperExecutor: exec,
		Deadline:      10 * time.Second,
		Clock:         fixedClock{tick},
		Log:           zerolog.Nop(),
	}

	result, err := j.RunUser(id, sampleSnapshot(tick))
	if err != nil {
		t.Fatalf("RunUser: %v", err)
	}
	if len(result.Buys) != 0 || len(exec.buys) != 0 {
		t.Fatalf("expected no buys for a disabled user: RunUserTick honors Policy.Enabled, got %+v", result.Buys)
	}
}

func TestRunUserRejectsLiveAccountWithoutLiveExecutor(t *testing.T) {
	repo, db := testUsers(t)
	res, err := db.Exec(`INSERT INTO users (broker_api_key, broker_api_secret, is_paper_account) VALUES ('k', 's', 0)`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	_, err = db.Exec(`INSERT INTO user_settings (user_id, mode, enabled, score_version, buy_conditions, sell_conditions,
		min_buy_score, sell_score, stop_loss_rate, take_profit_rate, max_holdings, max_daily_trades,
		max_hold_days, per_ticker_budget, min_volume_ratio, gap_limit_pct, expire_hours, market_cap_ceiling)
		VALUES (?, 'auto', 1, 'v1', 'V1>=60', 'V1<=30', 60, 30, 0.07, 0.15, 5, 10, 10, 1000000, 0.0, 15.0, 4.0, NULL)`, id)
	if err != nil {
		t.Fatalf("insert user_settings: %v", err)
	}

	tick := time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local)
	j := &TickJob{
		Calendar:      testCalendar(),
		Users:         repo,
		Journal:       testJournal(t),
		PaperExecutor: &fakeExecutor{cash: 1_000_000},
		Deadline:      10 * time.Second,
		Clock:         fixedClock{tick},
		Log:           zerolog.Nop(),
	}

	if _, err := j.RunUser(id, sampleSnapshot(tick)); err == nil {
		t.Fatalf("expected an error for a live account with no live executor configured")
	}
}
