// Command recordscores implements the record_intraday_scores CLI surface
// (§6): either the once-daily pre-open universe filter, or one intraday
// snapshot tick with an optional immediate auto-trade pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dohyunpark/autotrader/internal/broker"
	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/di"
	"github.com/dohyunpark/autotrader/internal/events"
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

func main() {
	os.Exit(run())
}

func run() int {
	filter := flag.Bool("filter", false, "run the pre-open universe filter instead of a snapshot tick")
	kis := flag.Bool("kis", false, "route the auto-trade pass through the live broker instead of paper accounts")
	callAutoTrader := flag.Bool("call-auto-trader", false, "run the auto-trade pass immediately after writing the snapshot")
	dryRun := flag.Bool("dry-run", false, "log intended orders instead of submitting them")
	flag.Parse()

	if *filter && (*kis || *callAutoTrader || *dryRun) {
		fmt.Fprintln(os.Stderr, "--filter cannot be combined with --kis, --call-auto-trader, or --dry-run")
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

	if *filter {
		if err := container.PreOpenJob.Run(); err != nil {
			log.Error().Err(err).Msg("pre-open universe filter failed")
			return exitSnapshotIssue
		}
		log.Info().Msg("universe filter complete")
		return exitSuccess
	}

	if *kis && container.LiveExecutor == nil {
		log.Error().Msg("--kis requested but no live broker is configured")
		return exitBrokerAuth
	}

	if !*callAutoTrader {
		ctx := context.Background()
		secs, err := container.TickJob.Universe()
		if err != nil {
			log.Error().Err(err).Msg("load today's universe failed")
			return exitSnapshotIssue
		}
		now := container.Clock.Now()
		if _, err := container.Writer.Run(ctx, now, secs, cfg.TickDeadline); err != nil {
			log.Error().Err(err).Msg("write snapshot failed")
			return exitSnapshotIssue
		}
		log.Info().Msg("snapshot recorded")
		return exitSuccess
	}

	if *dryRun {
		container.TickJob.PaperExecutor = broker.DryRun{Inner: container.PaperExecutor, Log: log}
		if container.LiveExecutor != nil {
			container.TickJob.LiveExecutor = broker.DryRun{Inner: container.LiveExecutor, Log: log}
		}
	}
	if !*kis {
		// Route every account through paper execution for this run,
		// regardless of the account's own IsPaperAccount flag.
		container.TickJob.LiveExecutor = nil
	}

	before := len(container.Events.Recent())
	if err := container.TickJob.Run(); err != nil {
		log.Error().Err(err).Msg("snapshot-and-trade tick failed")
		return exitSnapshotIssue
	}

	if countUserTickFailures(container.Events.Recent()[before:]) > 0 {
		log.Warn().Msg("tick completed with partial user failures")
		return exitPartial
	}
	log.Info().Msg("snapshot and auto-trade pass complete")
	return exitSuccess
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
