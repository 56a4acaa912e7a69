package users

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/dohyunpark/autotrader/internal/domain"
)

func testDB(t *testing.T) *sql.DB {
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
	return db
}

func insertUser(t *testing.T, db *sql.DB, enabled bool) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (broker_api_key, broker_api_secret, is_paper_account) VALUES ('', '', 1)`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	en := 0
	if enabled {
		en = 1
	}
	_, err = db.Exec(`INSERT INTO user_settings (user_id, mode, enabled, score_version, buy_conditions, sell_conditions,
		min_buy_score, sell_score, stop_loss_rate, take_profit_rate, max_holdings, max_daily_trades,
		max_hold_days, per_ticker_budget, min_volume_ratio, gap_limit_pct, expire_hours, market_cap_ceiling)
		VALUES (?, 'auto', ?, 'v1', 'V1>=60', 'V1<=30', 60, 30, 0.07, 0.15, 5, 10, 10, 1000000, 2.0, 15.0, 4.0, NULL)`,
		id, en)
	if err != nil {
		t.Fatalf("insert user_settings: %v", err)
	}
	return id
}

func TestEnabledReturnsOnlyEnabledUsers(t *testing.T) {
	db := testDB(t)
	repo := New(db, zerolog.Nop())

	insertUser(t, db, true)
	insertUser(t, db, false)

	out, err := repo.Enabled()
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 enabled user, got %d", len(out))
	}
	if out[0].Policy.Mode != domain.ModeAuto {
		t.Fatalf("expected mode auto, got %v", out[0].Policy.Mode)
	}
	if out[0].Policy.BuyConditions != "V1>=60" {
		t.Fatalf("unexpected buy conditions: %q", out[0].Policy.BuyConditions)
	}
}

func TestGetReturnsDisabledUserToo(t *testing.T) {
	db := testDB(t)
	repo := New(db, zerolog.Nop())

	id := insertUser(t, db, false)

	u, err := repo.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.ID != id {
		t.Fatalf("expected id %d, got %d", id, u.ID)
	}
	if u.Policy.Enabled {
		t.Fatalf("expected disabled user to round-trip as disabled")
	}
}

func TestGetUnknownUserErrors(t *testing.T) {
	db := testDB(t)
	repo := New(db, zerolog.Nop())

	if _, err := repo.Get(999); err == nil {
		t.Fatalf("expected an error for an unknown user id")
	}
}
