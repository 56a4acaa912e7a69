// Package users is the repository over the "users" database: accounts,
// per-user trading policy, broker credentials, and the paper-account
// starting balance (§3's User/UserPolicy entities, §6's persisted-state
// section).
package users

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// Repository wraps the users database connection, following the same
// NewRepository(db, log) shape the journal and settings repositories use.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// New constructs a Repository over an already-migrated *sql.DB (see
// internal/database/schemas/users_schema.sql).
func New(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("repository", "users").Logger()}
}

// Enabled returns every user whose policy has enabled=1, joined against
// its credentials, for the scheduler's per-tick user fan-out (§4.11).
func (r *Repository) Enabled() ([]domain.User, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.broker_api_key, u.broker_api_secret, u.is_paper_account,
		       s.mode, s.enabled, s.score_version, s.buy_conditions, s.sell_conditions,
		       s.min_buy_score, s.sell_score, s.stop_loss_rate, s.take_profit_rate,
		       s.max_holdings, s.max_daily_trades, s.max_hold_days, s.per_ticker_budget,
		       s.min_volume_ratio, s.gap_limit_pct, s.expire_hours, s.market_cap_ceiling
		FROM users u JOIN user_settings s ON s.user_id = u.id
		WHERE s.enabled = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("enabled users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns a single user by ID, regardless of enabled state (used by
// `auto_trader --user-id` single-user ticks).
func (r *Repository) Get(id int64) (domain.User, error) {
	row := r.db.QueryRow(`
		SELECT u.id, u.broker_api_key, u.broker_api_secret, u.is_paper_account,
		       s.mode, s.enabled, s.score_version, s.buy_conditions, s.sell_conditions,
		       s.min_buy_score, s.sell_score, s.stop_loss_rate, s.take_profit_rate,
		       s.max_holdings, s.max_daily_trades, s.max_hold_days, s.per_ticker_budget,
		       s.min_volume_ratio, s.gap_limit_pct, s.expire_hours, s.market_cap_ceiling
		FROM users u JOIN user_settings s ON s.user_id = u.id
		WHERE u.id = ?
	`, id)
	return scanUser(row)
}

// scanner abstracts over *sql.Row and *sql.Rows, both of which expose Scan.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var mode string
	var enabled int
	var isPaper int
	var ceiling sql.NullFloat64
	err := s.Scan(
		&u.ID, &u.BrokerAPIKey, &u.BrokerAPISecret, &isPaper,
		&mode, &enabled, &u.Policy.ScoreVersion, &u.Policy.BuyConditions, &u.Policy.SellConditions,
		&u.Policy.MinBuyScore, &u.Policy.SellScore, &u.Policy.StopLossRate, &u.Policy.TakeProfitRate,
		&u.Policy.MaxHoldings, &u.Policy.MaxDailyTrades, &u.Policy.MaxHoldDays, &u.Policy.PerTickerBudget,
		&u.Policy.MinVolumeRatio, &u.Policy.GapLimitPct, &u.Policy.ExpireHours, &ceiling,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.IsPaperAccount = isPaper != 0
	u.Policy.Mode = domain.TradingMode(mode)
	u.Policy.Enabled = enabled != 0
	if ceiling.Valid {
		v := ceiling.Float64
		u.Policy.MarketCapCeiling = &v
	}
	return u, nil
}

// SeedCash returns the configured starting paper-trading balance for a
// user, used to seed broker.Paper on process start.
func (r *Repository) SeedCash(user int64) (float64, error) {
	var cash float64
	err := r.db.QueryRow(`SELECT cash FROM virtual_balance WHERE user_id = ?`, user).Scan(&cash)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("seed cash: %w", err)
	}
	return cash, nil
}

// SetSeedCash updates a paper account's recorded starting balance, used by
// the virtual-balance settings UI action (out of scope here beyond the
// persistence call itself).
func (r *Repository) SetSeedCash(user int64, cash float64) error {
	_, err := r.db.Exec(`
		INSERT INTO virtual_balance (user_id, cash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET cash = excluded.cash, updated_at = excluded.updated_at
	`, user, cash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set seed cash: %w", err)
	}
	return nil
}

// DisableToday marks a user's automated trading as disabled for the rest
// of the calendar day without mutating UserPolicy.Enabled, per §7's
// BrokerPermanent error-handling rule ("a separate disabled_today latch is
// used so user's config is not mutated").
func (r *Repository) DisableToday(user int64, day string, reason string) error {
	_, err := r.db.Exec(`
		INSERT INTO daily_blacklist_overrides (user_id, ticker, day, reason)
		VALUES (?, '*', ?, ?)
		ON CONFLICT(user_id, ticker, day) DO UPDATE SET reason = excluded.reason
	`, user, day, reason)
	if err != nil {
		return fmt.Errorf("disable today: %w", err)
	}
	return nil
}

// DisabledToday reports whether DisableToday has already latched this user
// off for the given day.
func (r *Repository) DisabledToday(user int64, day string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM daily_blacklist_overrides WHERE user_id = ? AND ticker = '*' AND day = ?
	`, user, day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("disabled today: %w", err)
	}
	return n > 0, nil
}
