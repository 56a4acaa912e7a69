package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// CreateSuggestion inserts a pending buy suggestion for a semi-auto user
// with the given TTL (§4.9).
func (j *Journal) CreateSuggestion(s domain.Suggestion) error {
	_, err := j.db.Exec(`
		INSERT INTO buy_suggestions (id, user_id, ticker, score, recommended_price, buy_band_high, target, stop, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.User, s.Ticker, s.Score, s.RecommendedPrice, s.BuyBandHigh, s.Target, s.Stop,
		string(domain.SuggestionPending), s.CreatedAt.UTC().Format(time.RFC3339), s.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create suggestion: %w", err)
	}
	return nil
}

// ExpirePending transitions every pending suggestion past its TTL to
// "expired", run at tick entry per §4.9.
func (j *Journal) ExpirePending(now time.Time) (int64, error) {
	res, err := j.db.Exec(`
		UPDATE buy_suggestions SET status = ?
		WHERE status = ? AND expires_at < ?
	`, string(domain.SuggestionExpired), string(domain.SuggestionPending), now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("expire pending suggestions: %w", err)
	}
	return res.RowsAffected()
}

// PendingForUser returns a user's still-open suggestions, used by the
// status server's suggestion listing. The controller does not consult it
// before queueing a new suggestion.
func (j *Journal) PendingForUser(user int64) ([]domain.Suggestion, error) {
	rows, err := j.db.Query(`
		SELECT id, ticker, score, recommended_price, buy_band_high, target, stop, status, created_at, expires_at
		FROM buy_suggestions WHERE user_id = ? AND status = ?
	`, user, string(domain.SuggestionPending))
	if err != nil {
		return nil, fmt.Errorf("pending suggestions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suggestion
	for rows.Next() {
		var s domain.Suggestion
		var status, createdAt, expiresAt string
		if err := rows.Scan(&s.ID, &s.Ticker, &s.Score, &s.RecommendedPrice, &s.BuyBandHigh,
			&s.Target, &s.Stop, &status, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("pending suggestions scan: %w", err)
		}
		s.User = user
		s.Status = domain.SuggestionStatus(status)
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Approve transitions a pending suggestion to approved. This is the only
// mutation a UI action performs; the controller never calls it and never
// auto-executes an approved suggestion (§4.9 — explicitly out of scope for
// the controller's own tick logic).
func (j *Journal) Approve(id string) error {
	res, err := j.db.Exec(`
		UPDATE buy_suggestions SET status = ? WHERE id = ? AND status = ?
	`, string(domain.SuggestionApproved), id, string(domain.SuggestionPending))
	if err != nil {
		return fmt.Errorf("approve suggestion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve suggestion: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExecuted sets a suggestion's status to executed, whatever its
// current status. The controller never calls it (see Approve).
func (j *Journal) MarkExecuted(id string) error {
	_, err := j.db.Exec(`UPDATE buy_suggestions SET status = ? WHERE id = ?`, string(domain.SuggestionExecuted), id)
	if err != nil {
		return fmt.Errorf("mark suggestion executed: %w", err)
	}
	return nil
}
