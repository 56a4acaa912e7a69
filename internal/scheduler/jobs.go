package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/controller"
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/marketstatus"
	"github.com/dohyunpark/autotrader/internal/risk"
	"github.com/dohyunpark/autotrader/internal/snapshot"
	"github.com/dohyunpark/autotrader/internal/universe"
	"github.com/dohyunpark/autotrader/internal/users"
)

// ListingsSource supplies the raw listed-security feed the pre-open job
// filters. Out of scope beyond this interface (§1 Non-goals: market-data
// providers).
type ListingsSource interface {
	Listings(ctx context.Context) ([]universe.Listing, error)
}

// MacroSource supplies the previous session's NASDAQ-derived change
// percentage feeding risk.MacroMultiplier. Out of scope beyond this
// interface; a nil source keeps the multiplier at 1.0.
type MacroSource interface {
	PrevChangePct(ctx context.Context) (float64, error)
}

// PreOpenJob runs the once-daily universe filter (§4.3) ahead of the
// trading session.
type PreOpenJob struct {
	Listings ListingsSource
	Filters  universe.Filters
	OutDir   string
	Calendar marketstatus.Calendar
	Clock    domain.Clock
	Log      zerolog.Logger
}

func (j *PreOpenJob) Name() string { return "preopen_universe_filter" }

// Run fetches the raw listing feed and writes today's filtered universe
// file. A non-trading day is a no-op, not an error.
func (j *PreOpenJob) Run() error {
	now := j.Clock.Now()
	if !j.Calendar.IsTradingDay(now) {
		j.Log.Debug().Msg("preopen job: not a trading day, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	listings, err := j.Listings.Listings(ctx)
	if err != nil {
		return fmt.Errorf("fetch listings: %w", err)
	}

	date := now.In(j.Calendar.Location).Format("20060102")
	_, err = universe.Filter(listings, j.Filters, j.OutDir, date, j.Log)
	return err
}

// TickJob runs one intraday scoring-and-trading cycle (§4.4, §4.11):
// refresh the snapshot, then dispatch every enabled user's controller tick
// concurrently, bounded by Concurrency.
type TickJob struct {
	Calendar marketstatus.Calendar
	Writer   *snapshot.Writer
	Universe func() ([]universe.Security, error) // loads today's filtered universe
	Deadline time.Duration

	Users         *users.Repository
	Journal       *journal.Journal
	PaperExecutor domain.Executor
	LiveExecutor  domain.Executor // nil disables live accounts; they are skipped with a logged warning

	Macro       MacroSource
	Concurrency int // bounded per-tick user fan-out, default 8
	Clock       domain.Clock
	Events      *events.Manager
	Log         zerolog.Logger
}

func (j *TickJob) Name() string { return "intraday_tick" }

// Run executes one tick end to end: it writes a fresh snapshot itself
// (record_intraday_scores semantics) and then fans the enabled-user set
// out against it. It is safe to call concurrently with itself only in the
// sense that the underlying Writer/Journal are already concurrency-safe;
// the scheduler itself never overlaps two tick runs.
func (j *TickJob) Run() error {
	now := j.Clock.Now()
	if !j.Calendar.IsOpen(now) {
		j.Log.Debug().Msg("tick job: market closed, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.Deadline)
	defer cancel()

	secs, err := j.Universe()
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	snap, err := j.Writer.Run(ctx, now, secs, j.Deadline)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	enabled, err := j.Users.Enabled()
	if err != nil {
		return fmt.Errorf("load enabled users: %w", err)
	}

	j.runUsers(ctx, enabled, snap)
	return nil
}

// RunFromSnapshot implements the `auto_trader --all` CLI surface (§6): it
// never writes a snapshot itself, only reads the most recently published
// one (via ReadFresh's max-age-minutes staleness rule in §4.4) and fans
// every enabled user out against it. A stale or missing snapshot is a
// StaleSnapshot error (§7): the whole pass aborts, to be retried next tick.
func (j *TickJob) RunFromSnapshot(snap snapshot.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.Deadline)
	defer cancel()

	enabled, err := j.Users.Enabled()
	if err != nil {
		return fmt.Errorf("load enabled users: %w", err)
	}

	j.runUsers(ctx, enabled, snap)
	return nil
}

// RunUser implements the `auto_trader --user-id <N>` CLI surface (§6): one
// user's tick against an already-published snapshot, regardless of that
// user's enabled flag (a manual single-user run is allowed to target a
// disabled account; RunUserTick itself still honors policy.Enabled).
func (j *TickJob) RunUser(userID int64, snap snapshot.Snapshot) (controller.TickResult, error) {
	u, err := j.Users.Get(userID)
	if err != nil {
		return controller.TickResult{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.Deadline)
	defer cancel()

	macroMult := j.macroMultiplier(ctx)

	exec := j.PaperExecutor
	if !u.IsPaperAccount {
		if j.LiveExecutor == nil {
			return controller.TickResult{}, fmt.Errorf("user %d is a live account but no live executor is configured", userID)
		}
		exec = j.LiveExecutor
	}

	c := controller.Controller{
		Executor:  exec,
		Journal:   j.Journal,
		Calendar:  j.Calendar,
		MacroMult: macroMult,
		Clock:     j.Clock,
		Log:       j.Log,
	}
	return c.RunUserTick(u, snap), nil
}

func (j *TickJob) runUsers(ctx context.Context, enabled []domain.User, snap snapshot.Snapshot) {
	macroMult := j.macroMultiplier(ctx)

	concurrency := j.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, u := range enabled {
		u := u
		exec := j.PaperExecutor
		if !u.IsPaperAccount {
			if j.LiveExecutor == nil {
				j.Log.Warn().Int64("user", u.ID).Msg("live executor not configured, skipping live account")
				continue
			}
			exec = j.LiveExecutor
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			j.runUser(u, exec, snap, macroMult)
		}()
	}
	wg.Wait()
}

func (j *TickJob) macroMultiplier(ctx context.Context) float64 {
	macroMult := 1.0
	if j.Macro != nil {
		if pct, err := j.Macro.PrevChangePct(ctx); err == nil {
			macroMult = risk.MacroMultiplier(pct)
		} else {
			j.Log.Warn().Err(err).Msg("macro source failed, defaulting multiplier to 1.0")
		}
	}
	return macroMult
}

func (j *TickJob) runUser(u domain.User, exec domain.Executor, snap snapshot.Snapshot, macroMult float64) {
	c := controller.Controller{
		Executor:  exec,
		Journal:   j.Journal,
		Calendar:  j.Calendar,
		MacroMult: macroMult,
		Clock:     j.Clock,
		Log:       j.Log,
	}
	result := c.RunUserTick(u, snap)
	if result.Err != nil {
		j.Log.Error().Int64("user", u.ID).Err(result.Err).Msg("user tick failed")
		if j.Events != nil {
			j.Events.Emit(events.Type("USER_TICK_FAILED"), "scheduler", map[string]interface{}{
				"user": u.ID, "error": result.Err.Error(),
			})
		}
		return
	}
	if len(result.Sells) > 0 || len(result.Buys) > 0 || len(result.Suggested) > 0 {
		j.Log.Info().Int64("user", u.ID).
			Int("sells", len(result.Sells)).Int("buys", len(result.Buys)).
			Int("suggested", len(result.Suggested)).Msg("user tick complete")
	}
}
