// Package config reads service settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/coreybb/thermowatch/dayclock"
	"github.com/coreybb/thermowatch/mqttingest"
	"github.com/coreybb/thermowatch/scheduler"
	"github.com/coreybb/thermowatch/thingspeak"
)

const (
	DefaultPort       = "5002"
	DefaultSQLitePath = "instance/app.db"
	DefaultLiveEvery  = 5 * time.Second

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	Timezone     string
	IngestAPIKey string

	ThingSpeakChannelID  string
	ThingSpeakReadAPIKey string
	ThingSpeakBaseURL    string
	SyncEnabled          bool
	SyncInterval         time.Duration
	SyncBatchSize        int
	FetchTimeout         time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	MDNSEnabled  bool
	LiveInterval time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not read .env file", "error", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:                 env("PORT", DefaultPort),
		StoreDriver:          strings.ToLower(env("STORE_DRIVER", StoreSQLite)),
		DatabaseURL:          env("DB_CONNECTION_STRING", ""),
		SQLitePath:           env("SQLITE_PATH", DefaultSQLitePath),
		Timezone:             env("TIMEZONE", dayclock.DefaultTimezone),
		IngestAPIKey:         env("INGEST_API_KEY", ""),
		ThingSpeakChannelID:  env("THINGSPEAK_CHANNEL_ID", ""),
		ThingSpeakReadAPIKey: env("THINGSPEAK_READ_API_KEY", ""),
		ThingSpeakBaseURL:    env("THINGSPEAK_BASE_URL", thingspeak.DefaultBaseURL),
		MQTTBroker:           env("MQTT_BROKER", ""),
		MQTTTopic:            env("MQTT_TOPIC", mqttingest.DefaultTopic),
		MQTTClientID:         env("MQTT_CLIENT_ID", mqttingest.DefaultClientID),
	}

	var errs []error
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: %q is not a positive duration", key, raw))
			return fallback
		}
		return d
	}
	boolean := func(key string, fallback bool) bool {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
			return fallback
		}
		return b
	}

	cfg.SyncInterval = duration("SYNC_INTERVAL", scheduler.DefaultInterval)
	cfg.FetchTimeout = duration("FETCH_TIMEOUT", scheduler.DefaultFetchTimeout)
	cfg.LiveInterval = duration("LIVE_INTERVAL", DefaultLiveEvery)
	cfg.SyncEnabled = boolean("SYNC_ENABLED", cfg.ThingSpeakChannelID != "")
	cfg.MDNSEnabled = boolean("MDNS_ENABLED", false)

	cfg.SyncBatchSize = scheduler.DefaultBatchSize
	if raw := env("SYNC_BATCH_SIZE", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("SYNC_BATCH_SIZE: %q is not a positive integer", raw))
		} else {
			cfg.SyncBatchSize = n
		}
	}

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks the settings that depend on each other.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DB_CONNECTION_STRING is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown store %q", c.StoreDriver))
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %q is not a number", c.Port))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.SyncEnabled && c.ThingSpeakChannelID == "" {
		errs = append(errs, errors.New("SYNC_ENABLED requires THINGSPEAK_CHANNEL_ID"))
	}
	return errors.Join(errs...)
}

// PortNumber returns Port as an int. Validate guarantees it parses.
func (c Config) PortNumber() int {
	n, _ := strconv.Atoi(c.Port)
	return n
}
