package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/database"
)

// initializeDatabases opens and migrates the two SQLite stores, grounded
// on the teacher's InitializeDatabases staged-open-with-cleanup-on-error
// shape collapsed from seven databases to two.
func initializeDatabases(cfg *config.Config, log zerolog.Logger) (journalDB, usersDB *database.DB, err error) {
	journalDB, err = database.New(database.Config{
		Path:    cfg.DataDir + "/journal.db",
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize journal database: %w", err)
	}

	usersDB, err = database.New(database.Config{
		Path:    cfg.DataDir + "/users.db",
		Profile: database.ProfileStandard,
		Name:    "users",
	})
	if err != nil {
		journalDB.Close()
		return nil, nil, fmt.Errorf("initialize users database: %w", err)
	}

	for _, db := range []*database.DB{journalDB, usersDB} {
		if err := db.Migrate(); err != nil {
			journalDB.Close()
			usersDB.Close()
			return nil, nil, fmt.Errorf("migrate %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("databases initialized and schemas applied")
	return journalDB, usersDB, nil
}
