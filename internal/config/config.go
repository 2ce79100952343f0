package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Twilio    TwilioConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Address string
}

type StoreConfig struct {
	Backend string

	// sheets backend
	CredentialsJSON []byte
	SpreadsheetID   string
	SheetName       string

	// postgres backend
	PostgresURL string
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SchedulerConfig struct {
	Interval      time.Duration
	Confirmations bool
}

func LoadAll() (*Config, error) {
	var errs []error

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
	}

	cfg.Store, errs = loadStoreConfig(errs)
	cfg.Twilio, errs = loadTwilioConfig(errs)
	cfg.Redis, errs = loadRedisConfig(errs)

	interval, err := getEnvInt("SCHED_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, err)
	} else if interval <= 0 {
		errs = append(errs, errors.New("SCHED_INTERVAL_SECONDS must be > 0"))
	}
	cfg.Scheduler = SchedulerConfig{
		Interval:      time.Duration(interval) * time.Second,
		Confirmations: getEnv("CONFIRMATION_ENABLED", "true") != "false",
	}

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStoreConfig(errs []error) (StoreConfig, []error) {
	sc := StoreConfig{
		Backend: getEnv("STORE_BACKEND", BackendSheets),
	}

	switch sc.Backend {
	case BackendSheets:
		raw, err := requireEnv("GOOGLE_CREDS")
		if err != nil {
			errs = append(errs, err)
		} else {
			// The service-account JSON travels base64-encoded in the env.
			creds, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("GOOGLE_CREDS is not valid base64: %w", err))
			}
			sc.CredentialsJSON = creds
		}

		id, err := requireEnv("GOOGLE_SHEET_ID")
		if err != nil {
			errs = append(errs, err)
		}
		sc.SpreadsheetID = id
		sc.SheetName = getEnv("SHEET_NAME", "Sheet1")

	case BackendPostgres:
		url, err := requireEnv("POSTGRES_URL")
		if err != nil {
			errs = append(errs, err)
		}
		sc.PostgresURL = url

	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q",
			BackendSheets, BackendPostgres, sc.Backend))
	}

	return sc, errs
}

func loadTwilioConfig(errs []error) (TwilioConfig, []error) {
	var tc TwilioConfig
	var err error

	if tc.AccountSID, err = requireEnv("TWILIO_SID"); err != nil {
		errs = append(errs, err)
	}
	if tc.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		errs = append(errs, err)
	}
	if tc.WhatsAppNumber, err = requireEnv("TWILIO_WHATSAPP_NUMBER"); err != nil {
		errs = append(errs, err)
	}

	return tc, errs
}

func loadRedisConfig(errs []error) (RedisConfig, []error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, errs
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, errs
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
