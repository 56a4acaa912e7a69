// Command server runs the trading engine as a long-lived process: the
// scheduler drives the pre-open universe filter and intraday ticks, and a
// read-only HTTP status API runs alongside it.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/di"
	"github.com/dohyunpark/autotrader/internal/reliability"
	"github.com/dohyunpark/autotrader/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})

	// Market-data and broker-credential collaborators are out of scope
	// (§1 Non-goals): every field left nil degrades per its own documented
	// default rather than failing startup.
	container, err := di.Wire(cfg, log, di.Deps{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}
	defer container.Close()

	pidFile := reliability.NewPIDFile(cfg.DataDir, log)
	if err := pidFile.Write(); err != nil {
		log.Fatal().Err(err).Msg("failed to write pid file")
	}

	container.Scheduler.Start()
	defer container.Scheduler.Stop()

	go func() {
		if err := container.Server.Start(); err != nil {
			log.Fatal().Err(err).Msg("status server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("trading engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if err := pidFile.Remove(); err != nil {
		log.Warn().Err(err).Msg("failed to remove pid file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("status server forced to shutdown")
	}

	log.Info().Msg("stopped")
}
