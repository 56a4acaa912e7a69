package di

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/broker"
	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/database"
	"github.com/dohyunpark/autotrader/internal/domain"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/marketstatus"
	"github.com/dohyunpark/autotrader/internal/reliability"
	"github.com/dohyunpark/autotrader/internal/scheduler"
	"github.com/dohyunpark/autotrader/internal/scoring"
	"github.com/dohyunpark/autotrader/internal/scoring/scorers"
	"github.com/dohyunpark/autotrader/internal/server"
	"github.com/dohyunpark/autotrader/internal/snapshot"
	"github.com/dohyunpark/autotrader/internal/universe"
	"github.com/dohyunpark/autotrader/internal/users"
)

const eventBufferSize = 200

// Wire initializes every database, repository, service, and scheduled job
// and returns a fully wired Container. Order of operations matches the
// teacher's Wire(): databases, then repositories, then services, then
// jobs; any failure closes whatever was opened before returning the error.
func Wire(cfg *config.Config, log zerolog.Logger, deps Deps) (*Container, error) {
	journalDB, usersDB, err := initializeDatabases(cfg, log)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		journalDB.Close()
		usersDB.Close()
		return nil, fmt.Errorf("load market timezone %q: %w", cfg.TimeZone, err)
	}
	calendar := marketstatus.Default(loc)
	clock := domain.SystemClock{}
	eventMgr := events.NewManager(log, eventBufferSize)

	c := &Container{
		JournalDB: journalDB,
		UsersDB:   usersDB,
		Journal:   journal.New(journalDB.Conn(), log),
		Users:     users.New(usersDB.Conn(), log),
		Registry: scoring.NewRegistry(
			scorers.V1{}, scorers.V2{}, scorers.V3{}, scorers.V35{}, scorers.V4{},
			scorers.V5{}, scorers.V6{}, scorers.V7{}, scorers.V8{}, scorers.V10{},
		),
		Events: eventMgr,
		Clock:  clock,
		Log:    log,
	}

	if cfg.VenueStatusURL != "" {
		c.VenueStatus = marketstatus.NewLiveFeed(cfg.VenueStatusURL, eventMgr, log)
		if err := c.VenueStatus.Start(); err != nil {
			log.Warn().Err(err).Msg("market status feed unavailable at startup, will keep retrying in background")
		}
		calendar.Live = c.VenueStatus
	}

	c.PaperExecutor = broker.NewPaper(cfg.Fees, deps.PriceFeed, log)
	if cfg.BrokerBaseURL != "" {
		c.LiveExecutor = broker.NewLive(cfg.BrokerBaseURL, cfg.BrokerAPIKey, cfg.BrokerAPISecret, log)
	}

	filters := universe.DefaultFilters()
	if deps.Filters != nil {
		filters = *deps.Filters
	}

	c.Writer = &snapshot.Writer{
		Registry:       c.Registry,
		Prices:         deps.Prices,
		Extras:         deps.Extras,
		Workers:        cfg.SnapshotWorkers,
		Lookback:       cfg.SnapshotLookback,
		LiquidityFloor: cfg.LiquidityFloor,
		OutDir:         cfg.DataDir + "/snapshots",
		Log:            log,
		Events:         c.Events,
	}

	universeDir := cfg.DataDir + "/universe"
	c.PreOpenJob = &scheduler.PreOpenJob{
		Listings: deps.Listings,
		Filters:  filters,
		OutDir:   universeDir,
		Calendar: calendar,
		Clock:    clock,
		Log:      log,
	}
	c.TickJob = &scheduler.TickJob{
		Calendar: calendar,
		Writer:   c.Writer,
		Universe: func() ([]universe.Security, error) {
			return universe.LoadForDate(universeDir, clock.Now().In(loc).Format("20060102"))
		},
		Deadline:      cfg.TickDeadline,
		Users:         c.Users,
		Journal:       c.Journal,
		PaperExecutor: c.PaperExecutor,
		LiveExecutor:  c.LiveExecutor,
		Macro:         deps.Macro,
		Clock:         clock,
		Events:        c.Events,
		Log:           log,
	}

	c.Maintenance = &reliability.MaintenanceJob{
		Databases: []*database.DB{journalDB, usersDB},
		Log:       log,
	}

	if cfg.BackupEnabled {
		r2, err := reliability.NewR2Client(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretKey, cfg.R2Bucket, log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("initialize r2 client: %w", err)
		}
		c.Backup = &reliability.R2BackupService{
			Backup: &reliability.BackupService{
				JournalDBPath: journalDB.Path(),
				UsersDBPath:   usersDB.Path(),
				SnapshotDir:   cfg.DataDir + "/snapshots",
				StagingDir:    cfg.DataDir + "/backup-staging",
				Log:           log,
			},
			R2:  r2,
			Log: log,
		}
	}

	c.Scheduler = scheduler.New(log)
	if err := c.Scheduler.AddJob(cfg.PreOpenCron, c.PreOpenJob); err != nil {
		c.Close()
		return nil, fmt.Errorf("register preopen job: %w", err)
	}
	if err := c.Scheduler.AddJob(cfg.TickInterval, c.TickJob); err != nil {
		c.Close()
		return nil, fmt.Errorf("register tick job: %w", err)
	}
	if err := c.Scheduler.AddJob("0 0 20 * * 1-5", c.Maintenance); err != nil {
		c.Close()
		return nil, fmt.Errorf("register maintenance job: %w", err)
	}
	if c.Backup != nil {
		if err := c.Scheduler.AddJob(cfg.BackupCron, c.Backup); err != nil {
			c.Close()
			return nil, fmt.Errorf("register backup job: %w", err)
		}
	}

	c.Server = server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Cfg:       cfg,
		Users:     c.Users,
		Journal:   c.Journal,
		Events:    c.Events,
		Scheduler: c.Scheduler,
		DevMode:   cfg.DevMode,
	})

	log.Info().Msg("dependency injection wiring completed")
	return c, nil
}
