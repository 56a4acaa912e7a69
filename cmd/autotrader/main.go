// Command autotrader implements the auto_trader CLI surface (§6): it
// consumes the most recently published snapshot (never writing one of its
// own) and either dispatches every enabled user's controller tick, or runs
// a single user's tick on demand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dohyunpark/autotrader/internal/broker"
	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/di"
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/snapshot"
	"github.com/dohyunpark/autotrader/pkg/logger"
)

// Exit codes per §6.
const (
	exitSuccess       = 0
	exitArgError      = 1
	exitSnapshotIssue = 2
	exitBrokerAuth    = 3
	exitPartial       = 4
)

// maxSnapshotAge is the §4.4 "max-age-minutes" reader rule: a snapshot
// older than this is treated as stale rather than consumed.
const maxSnapshotAge = 15 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	all := flag.Bool("all", false, "process every enabled user against the latest snapshot")
	userID := flag.Int64("user-id", 0, "process a single user by ID")
	_ = flag.Bool("intraday", false, "consume the latest intraday snapshot (default; kept for CLI compatibility with the single-user path)")
	dryRun := flag.Bool("dry-run", false, "log intended orders instead of submitting them")
	flag.Parse()

	if *all == (*userID != 0) {
		fmt.Fprintln(os.Stderr, "exactly one of --all or --user-id must be given")
		return exitArgError
	}

	log := logger.New(logger.Config{Level: "info", Pretty: true})
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return exitArgError
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})

	container, err := di.Wire(cfg, log, di.Deps{})
	if err != nil {
		log.Error().Err(err).Msg("failed to wire dependencies")
		return exitArgError
	}
	defer container.Close()

	if *dryRun {
		container.TickJob.PaperExecutor = broker.DryRun{Inner: container.PaperExecutor, Log: log}
		if container.LiveExecutor != nil {
			container.TickJob.LiveExecutor = broker.DryRun{Inner: container.LiveExecutor, Log: log}
		}
	}

	loc := container.TickJob.Calendar.Location
	now := container.Clock.Now().In(loc)
	snapDir := cfg.DataDir + "/snapshots"

	snap, err := snapshotForNow(snapDir, now)
	if err != nil {
		if errors.Is(err, domain.ErrStaleSnapshot) {
			log.Error().Err(err).Msg("snapshot stale")
		} else {
			log.Error().Err(err).Msg("no snapshot available")
		}
		return exitSnapshotIssue
	}

	if *userID != 0 {
		result, err := container.TickJob.RunUser(*userID, snap)
		if err != nil {
			log.Error().Err(err).Int64("user", *userID).Msg("user tick failed")
			if strings.Contains(err.Error(), "live executor") {
				return exitBrokerAuth
			}
			return exitSnapshotIssue
		}
		if result.Err != nil {
			log.Error().Err(result.Err).Int64("user", *userID).Msg("user tick failed")
			return exitPartial
		}
		log.Info().Int64("user", *userID).
			Int("sells", len(result.Sells)).Int("buys", len(result.Buys)).
			Int("suggested", len(result.Suggested)).Msg("single-user tick complete")
		return exitSuccess
	}

	before := len(container.Events.Recent())
	if err := container.TickJob.RunFromSnapshot(snap); err != nil {
		log.Error().Err(err).Msg("auto-trade pass failed")
		return exitSnapshotIssue
	}
	if countUserTickFailures(container.Events.Recent()[before:]) > 0 {
		log.Warn().Msg("auto-trade pass completed with partial user failures")
		return exitPartial
	}
	log.Info().Msg("auto-trade pass complete")
	return exitSuccess
}

// snapshotForNow loads today's most recently published, still-fresh
// snapshot. It tries the exact current tick first (for callers invoked
// right after a record_intraday_scores run), then falls back to the
// latest file for the day.
func snapshotForNow(dir string, now time.Time) (snapshot.Snapshot, error) {
	if snap, err := snapshot.ReadFresh(dir, now.Truncate(time.Minute), maxSnapshotAge, now); err == nil {
		return snap, nil
	}
	snap, err := snapshot.Latest(dir, now)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrStaleSnapshot, err)
	}
	if now.Sub(snap.TickTS) > maxSnapshotAge {
		return snapshot.Snapshot{}, domain.ErrStaleSnapshot
	}
	return snap, nil
}

func countUserTickFailures(evs []events.Event) int {
	n := 0
	for _, e := range evs {
		if e.Type == "USER_TICK_FAILED" {
			n++
		}
	}
	return n
}
