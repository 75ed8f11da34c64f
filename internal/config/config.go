// Package config builds the application configuration from environment
// variables (populated from the .env file in main). The Config struct is
// constructed once at process start and passed into the pipeline; nothing
// reads the environment after that.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for everything that can be tuned from the environment.
const (
	DefaultDatabase       = "statsync"
	DefaultDataDir        = "./data"
	DefaultBatchSize      = 500
	DefaultBatchDelay     = 1 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultCheckpointFile = "checkpoint.json"
	DefaultErrorLogFile   = "upload_errors.json"
	DefaultLogFile        = "statsync.log"
)

type Config struct {
	MongoConnString string
	MongoDatabase   string
	SQLConnString   string
	DataDir         string
	BatchSize       int
	BatchDelay      time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	CheckpointFile  string
	ErrorLogFile    string
	LogFile         string
}

// Load reads all settings from the environment. Only the Mongo connection
// string is required; SQL_CONNECTION_STRING is validated lazily by the
// command that needs it.
func Load() (*Config, error) {
	mongoConn := os.Getenv("MONGO_CONNECTION_STRING")
	if mongoConn == "" {
		return nil, errors.New("MONGO_CONNECTION_STRING environment variable not set")
	}

	cfg := &Config{
		MongoConnString: mongoConn,
		MongoDatabase:   envOr("MONGO_DATABASE", DefaultDatabase),
		SQLConnString:   os.Getenv("SQL_CONNECTION_STRING"),
		DataDir:         envOr("STATS_DATA_DIR", DefaultDataDir),
		CheckpointFile:  envOr("STATSYNC_CHECKPOINT_FILE", DefaultCheckpointFile),
		ErrorLogFile:    envOr("STATSYNC_ERROR_LOG", DefaultErrorLogFile),
		LogFile:         envOr("STATSYNC_LOG_FILE", DefaultLogFile),
	}

	var err error
	if cfg.BatchSize, err = envInt("STATSYNC_BATCH_SIZE", DefaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("STATSYNC_BATCH_SIZE must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.BatchDelay, err = envMillis("STATSYNC_BATCH_DELAY_MS", DefaultBatchDelay); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("STATSYNC_MAX_RETRIES", DefaultMaxRetries); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = envMillis("STATSYNC_RETRY_BASE_DELAY_MS", DefaultRetryBaseDelay); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: expected integer, got %q", key, v)
	}
	return n, nil
}

func envMillis(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: expected integer milliseconds, got %q", key, v)
	}
	return time.Duration(n) * time.Millisecond, nil
}
