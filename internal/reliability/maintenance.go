package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/database"
)

// MaintenanceJob runs the routine integrity-check-and-checkpoint pass
// against every tracked database, grounded on the teacher's
// DailyMaintenanceJob.Run shape (integrity check, WAL checkpoint) minus
// the growth-analysis and disk-space steps that depended on the
// teacher's larger multi-database fleet.
type MaintenanceJob struct {
	Databases []*database.DB
	Log       zerolog.Logger
}

// Name satisfies scheduler.Job.
func (j *MaintenanceJob) Name() string { return "database_maintenance" }

// Run checks every database's integrity, then checkpoints its WAL. A
// failed integrity check is logged and reported but does not stop the
// remaining databases from being checked.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var firstErr error
	for _, db := range j.Databases {
		log := j.Log.With().Str("database", db.Name()).Logger()

		if err := db.HealthCheck(ctx); err != nil {
			log.Error().Err(err).Msg("integrity check failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Error().Err(err).Msg("wal checkpoint failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		stats, err := db.GetStats()
		if err != nil {
			log.Warn().Err(err).Msg("stats unavailable")
			continue
		}
		log.Debug().Int64("size_bytes", stats.SizeBytes).Int64("wal_bytes", stats.WALSizeBytes).
			Msg("maintenance pass complete")
	}
	return firstErr
}
