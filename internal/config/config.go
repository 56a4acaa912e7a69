// Package config loads and validates application configuration for the
// trading engine. All configuration is an explicit struct threaded
// through the DI container — no package-level globals are read by any
// other package (§9 design note).
//
// Configuration Loading Order:
// 1. Load from .env file (if present)
// 2. Load from environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dohyunpark/autotrader/internal/domain"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // base directory for all SQLite databases and snapshot CSVs, always absolute
	LogLevel string // debug, info, warn, error
	Pretty   bool   // pretty console logging (dev convenience)
	Port     int    // HTTP status-server port
	DevMode  bool

	Market       domain.Market
	Fees         domain.FeeSchedule
	TimeZone     string // IANA zone name for the market calendar, e.g. "Asia/Seoul"
	LiquidityFloor float64 // minimum prior-day traded value (KRW) a ticker must clear to be scored

	SnapshotWorkers  int           // bounded worker-pool size for the snapshot writer
	SnapshotLookback int           // bars of history fetched per ticker
	TickDeadline     time.Duration // per-tick wall-clock budget before snapshot degradation kicks in
	TickInterval     string        // cron expression driving the intraday tick (§4.11)
	PreOpenCron      string        // cron expression driving the pre-open universe-filter job

	BrokerBaseURL    string // live broker REST base URL
	BrokerAPIKey     string
	BrokerAPISecret  string
	BrokerTimeout    time.Duration

	VenueStatusURL string // venue's real-time halt-status WebSocket endpoint; empty disables the live feed

	BackupEnabled bool
	BackupCron    string
	R2AccountID   string
	R2AccessKeyID string
	R2SecretKey   string
	R2Bucket      string
}

// Load reads configuration from environment variables, applying the
// teacher's .env-then-environment precedence via godotenv.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	dataDir := ""
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("TRADER_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Pretty:   getEnvAsBool("LOG_PRETTY", false),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		Market: domain.Market(getEnv("MARKET", "KRX")),
		Fees: domain.FeeSchedule{
			Market:         domain.Market(getEnv("MARKET", "KRX")),
			CommissionRate: getEnvAsFloat("COMMISSION_RATE", 0.00015),
			TaxRate:        getEnvAsFloat("TAX_RATE", 0.0018),
		},
		TimeZone:       getEnv("MARKET_TIMEZONE", "Asia/Seoul"),
		LiquidityFloor: getEnvAsFloat("LIQUIDITY_FLOOR", 1_000_000_000),

		SnapshotWorkers:  getEnvAsInt("SNAPSHOT_WORKERS", 40),
		SnapshotLookback: getEnvAsInt("SNAPSHOT_LOOKBACK", 120),
		TickDeadline:     time.Duration(getEnvAsInt("TICK_DEADLINE_SECONDS", 240)) * time.Second,
		TickInterval:     getEnv("TICK_CRON", "0 */1 9-15 * * 1-5"),
		PreOpenCron:      getEnv("PREOPEN_CRON", "0 50 8 * * 1-5"),

		BrokerBaseURL:   getEnv("BROKER_BASE_URL", ""),
		BrokerAPIKey:    getEnv("BROKER_API_KEY", ""),
		BrokerAPISecret: getEnv("BROKER_API_SECRET", ""),
		BrokerTimeout:   time.Duration(getEnvAsInt("BROKER_TIMEOUT_SECONDS", 10)) * time.Second,
		VenueStatusURL:  getEnv("VENUE_STATUS_WS_URL", ""),

		BackupEnabled: getEnvAsBool("BACKUP_ENABLED", false),
		BackupCron:    getEnv("BACKUP_CRON", "0 30 16 * * 1-5"),
		R2AccountID:   getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID: getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that must hold regardless of mode: a backup
// target must be fully specified or fully absent, and a BROKER_BASE_URL
// requires BROKER_API_KEY and BROKER_API_SECRET.
func (c *Config) Validate() error {
	if c.BackupEnabled {
		if c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretKey == "" || c.R2Bucket == "" {
			return fmt.Errorf("%w: BACKUP_ENABLED requires R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET", domain.ErrConfig)
		}
	}
	if c.BrokerBaseURL != "" && (c.BrokerAPIKey == "" || c.BrokerAPISecret == "") {
		return fmt.Errorf("%w: BROKER_BASE_URL requires BROKER_API_KEY and BROKER_API_SECRET", domain.ErrConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
