// Package journal is the trade-journal persistence layer for the engine
// (§4.8): append-only order records, a materialised holdings view, daily
// performance accounting, a dedupe ledger for alerts, and the buy
// suggestion store semi-auto users queue into (§4.9).
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// Journal wraps the journal database connection and exposes one method per
// table the specification names in §4.8-4.9.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// New constructs a Journal over an already-migrated *sql.DB (the journal
// profile-ledger database; see internal/database/schemas/journal_schema.sql).
func New(db *sql.DB, log zerolog.Logger) *Journal {
	return &Journal{db: db, log: log.With().Str("repository", "journal").Logger()}
}

// RecordOrder appends a filled or rejected order to the ledger. It writes
// only the orders table; the materialised holdings row is updated by a
// separate call.
func (j *Journal) RecordOrder(o domain.Order) (int64, error) {
	res, err := j.db.Exec(`
		INSERT INTO orders (user_id, ticker, side, qty, price, placed_at, broker_order_id, status, realised_pnl, realised_rate, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.User, o.Ticker, string(o.Side), o.Qty, o.Price, o.PlacedAt.UTC().Format(time.RFC3339),
		o.BrokerOrderID, string(o.Status), o.RealisedPnL, o.RealisedRate, o.Reason)
	if err != nil {
		return 0, fmt.Errorf("record order: %w", err)
	}
	return res.LastInsertId()
}

// ApplyBuy upserts a holding after an executed buy, averaging the price
// across the new and existing quantity.
func (j *Journal) ApplyBuy(h domain.Holding) error {
	_, err := j.db.Exec(`
		INSERT INTO holdings (user_id, ticker, market, qty, avg_price, opened_at, ever_above_sma20, exit_plan_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			qty = qty + excluded.qty,
			avg_price = (avg_price*holdings.qty + excluded.avg_price*excluded.qty) / (holdings.qty + excluded.qty)
	`, h.User, h.Ticker, string(h.Market), h.Qty, h.AvgPrice, h.OpenedAt.UTC().Format(time.RFC3339),
		boolToInt(h.EverAboveSMA20), encodeExitPlan(h.ExitPlan))
	if err != nil {
		return fmt.Errorf("apply buy: %w", err)
	}
	return nil
}

// ApplySell reduces (or removes, at zero) a holding after an executed sell.
func (j *Journal) ApplySell(user int64, ticker string, qty float64) error {
	var current float64
	err := j.db.QueryRow(`SELECT qty FROM holdings WHERE user_id = ? AND ticker = ?`, user, ticker).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("apply sell: no holding for user=%d ticker=%s", user, ticker)
	}
	if err != nil {
		return fmt.Errorf("apply sell: %w", err)
	}

	remaining := current - qty
	if remaining <= 0 {
		_, err = j.db.Exec(`DELETE FROM holdings WHERE user_id = ? AND ticker = ?`, user, ticker)
	} else {
		_, err = j.db.Exec(`UPDATE holdings SET qty = ? WHERE user_id = ? AND ticker = ?`, remaining, user, ticker)
	}
	if err != nil {
		return fmt.Errorf("apply sell: %w", err)
	}
	return nil
}

// SetLatch persists the MA-20-break latch bit for a holding.
func (j *Journal) SetLatch(user int64, ticker string, everAboveSMA20 bool) error {
	_, err := j.db.Exec(`UPDATE holdings SET ever_above_sma20 = ? WHERE user_id = ? AND ticker = ?`,
		boolToInt(everAboveSMA20), user, ticker)
	return err
}

// Holdings returns every open holding for a user.
func (j *Journal) Holdings(user int64) ([]domain.Holding, error) {
	rows, err := j.db.Query(`
		SELECT ticker, market, qty, avg_price, opened_at, ever_above_sma20, exit_plan_json
		FROM holdings WHERE user_id = ?
	`, user)
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	defer rows.Close()

	var out []domain.Holding
	for rows.Next() {
		var h domain.Holding
		var market, openedAt string
		var everAbove int
		var exitPlanJSON sql.NullString
		if err := rows.Scan(&h.Ticker, &market, &h.Qty, &h.AvgPrice, &openedAt, &everAbove, &exitPlanJSON); err != nil {
			return nil, fmt.Errorf("holdings scan: %w", err)
		}
		h.User = user
		h.Market = domain.Market(market)
		h.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)
		h.EverAboveSMA20 = everAbove != 0
		if exitPlanJSON.Valid {
			h.ExitPlan = decodeExitPlan(exitPlanJSON.String)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DailyBlacklist returns every ticker with an executed order (buy or sell)
// for this user on day, per §4.8's "SELECT DISTINCT ticker ... status=executed".
func (j *Journal) DailyBlacklist(user int64, day string) (map[string]bool, error) {
	rows, err := j.db.Query(`
		SELECT DISTINCT ticker FROM orders
		WHERE user_id = ? AND date(placed_at) = ? AND status = ?
	`, user, day, string(domain.OrderStatusExecuted))
	if err != nil {
		return nil, fmt.Errorf("daily blacklist: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("daily blacklist scan: %w", err)
		}
		out[ticker] = true
	}
	return out, rows.Err()
}

// DailyTradeCount returns how many orders a user has placed today, for the
// MaxDailyTrades policy limit.
func (j *Journal) DailyTradeCount(user int64, day string) (int, error) {
	var n int
	err := j.db.QueryRow(`
		SELECT COUNT(*) FROM orders WHERE user_id = ? AND date(placed_at) = ?
	`, user, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("daily trade count: %w", err)
	}
	return n, nil
}

// RecordDailyPerf upserts one user's daily performance snapshot.
func (j *Journal) RecordDailyPerf(p domain.DailyPerf) error {
	_, err := j.db.Exec(`
		INSERT INTO daily_performance (user_id, date, total_assets, cash, holdings_value, invested, realised_pnl, n_holdings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			total_assets = excluded.total_assets,
			cash = excluded.cash,
			holdings_value = excluded.holdings_value,
			invested = excluded.invested,
			realised_pnl = excluded.realised_pnl,
			n_holdings = excluded.n_holdings
	`, p.User, p.Date, p.TotalAssets, p.Cash, p.HoldingsValue, p.Invested, p.RealisedPnL, p.NHoldings)
	if err != nil {
		return fmt.Errorf("record daily perf: %w", err)
	}
	return nil
}

// RecordAlert journals an alert, deduping on (user, ticker, kind, day) via
// the schema's unique index; a duplicate insert is silently treated as a
// no-op success so callers don't need to pre-check.
func (j *Journal) RecordAlert(a domain.AlertHistory) error {
	_, err := j.db.Exec(`
		INSERT INTO alert_history (user_id, ticker, kind, day, detail, at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, ticker, kind, day) DO NOTHING
	`, a.User, a.Ticker, string(a.Kind), a.Day, a.Detail, a.At.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeExitPlan(p *domain.ExitPlan) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(buf), Valid: true}
}

func decodeExitPlan(s string) *domain.ExitPlan {
	var p domain.ExitPlan
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil
	}
	return &p
}
