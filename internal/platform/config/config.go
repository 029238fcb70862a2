// Package config loads the service configuration.
//
// Precedence, lowest first: built-in defaults, the optional YAML file,
// variables from a .env file, the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Port            string        `yaml:"port"            envconfig:"PORT"`
	LogLevel        string        `yaml:"logLevel"        envconfig:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`

	StorageBackend   string        `yaml:"storageBackend"   envconfig:"STORAGE_BACKEND"`
	BadgerDir        string        `yaml:"badgerDir"        envconfig:"BADGER_DIR"`
	RedisAddr        string        `yaml:"redisAddr"        envconfig:"REDIS_ADDR"`
	RedisPassword    string        `yaml:"redisPassword"    envconfig:"REDIS_PASSWORD"`
	RedisDB          int           `yaml:"redisDb"          envconfig:"REDIS_DB"`
	RedisPrefix      string        `yaml:"redisPrefix"      envconfig:"REDIS_PREFIX"`
	DatabaseURL      string        `yaml:"databaseUrl"      envconfig:"DATABASE_URL"`
	SyncWriteTimeout time.Duration `yaml:"syncWriteTimeout" envconfig:"SYNC_WRITE_TIMEOUT"`
	IdempotencyTTL   time.Duration `yaml:"idempotencyTtl"   envconfig:"IDEMPOTENCY_TTL"`

	AuthMode        string        `yaml:"authMode"        envconfig:"AUTH_MODE"`
	DevSubject      string        `yaml:"devSubject"      envconfig:"DEV_SUBJECT"`
	MagicLinkSecret string        `yaml:"magicLinkSecret" envconfig:"MAGIC_LINK_SECRET"`
	TokenIssuer     string        `yaml:"tokenIssuer"     envconfig:"TOKEN_ISSUER"`
	MagicLinkTTL    time.Duration `yaml:"magicLinkTtl"    envconfig:"MAGIC_LINK_TTL"`
	SessionTTL      time.Duration `yaml:"sessionTtl"      envconfig:"SESSION_TTL"`
	ClockSkew       time.Duration `yaml:"clockSkew"       envconfig:"AUTH_CLOCK_SKEW"`
	PublicBaseURL   string        `yaml:"publicBaseUrl"   envconfig:"PUBLIC_BASE_URL"`
	// AllowedSubjects restricts who may request a magic link. Empty allows everyone.
	AllowedSubjects []string `yaml:"allowedSubjects" envconfig:"ALLOWED_SUBJECTS"`

	// HouseLeaderID, when set, is listed first among the mediums.
	HouseLeaderID int64 `yaml:"houseLeaderId" envconfig:"HOUSE_LEADER_ID"`
	// Timezone decides which calendar day "today" is for entry dates and outings.
	Timezone string `yaml:"timezone" envconfig:"HOUSE_TIMEZONE"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Port:             "8080",
		LogLevel:         "info",
		ShutdownTimeout:  10 * time.Second,
		StorageBackend:   StorageMemory,
		RedisPrefix:      "terreiro",
		SyncWriteTimeout: 15 * time.Second,
		IdempotencyTTL:   24 * time.Hour,
		AuthMode:         AuthModeDev,
		DevSubject:       "dev|local",
		TokenIssuer:      "terreiro-api",
		MagicLinkTTL:     15 * time.Minute,
		SessionTTL:       30 * 24 * time.Hour,
		ClockSkew:        30 * time.Second,
		PublicBaseURL:    "http://localhost:8080",
		Timezone:         "America/Sao_Paulo",
	}
}

// Load builds the configuration. path names an optional YAML file; when empty,
// CONFIG_FILE is consulted.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StorageBadger:
		if c.BadgerDir == "" {
			errs = append(errs, errors.New("BADGER_DIR is required for the badger backend"))
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if c.HouseLeaderID < 0 {
		errs = append(errs, errors.New("HOUSE_LEADER_ID must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.validateAuth(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// Location resolves Timezone. An empty value means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	return loc, nil
}
