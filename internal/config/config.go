package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers selectable through storage.driver / STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode  string `yaml:"mode"`
		Level string `yaml:"level"`
	} `yaml:"log"`
	Storage struct {
		Driver         string `yaml:"driver"`
		KeyPrefix      string `yaml:"keyPrefix"`
		DailyKeyPrefix string `yaml:"dailyKeyPrefix"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Progress struct {
		// Timezone names the IANA zone calendar days are counted in.
		Timezone string `yaml:"timezone"`
	} `yaml:"progress"`
}

// Load reads YAML config from path, then applies .env and environment
// overrides. A missing file is not an error; defaults and env still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// .env only fills variables the process does not already have.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Log.Mode, "LOG_MODE")
	override(&c.Log.Level, "LOG_LEVEL")
	override(&c.Storage.Driver, "STORAGE_DRIVER")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Postgres.URL, "POSTGRES_URL")
	override(&c.SQLite.Path, "SQLITE_PATH")
	override(&c.Progress.Timezone, "PROGRESS_TIMEZONE")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "cyber_sensei_progress"
	}
	if c.Storage.DailyKeyPrefix == "" {
		c.Storage.DailyKeyPrefix = "cyber_sensei_daily_progress"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "progress.db"
	}
	if c.Progress.Timezone == "" {
		c.Progress.Timezone = "UTC"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = c.inferDriver()
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
}

// inferDriver keeps older configs working: whichever backend is configured wins.
func (c *Config) inferDriver() string {
	switch {
	case c.Postgres.URL != "":
		return DriverPostgres
	case c.Redis.Addr != "":
		return DriverRedis
	default:
		return DriverMemory
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage driver %q requires redis.addr", c.Storage.Driver)
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver %q requires postgres.url", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return fmt.Errorf("progress.timezone: %w", err)
	}
	return nil
}

// Location returns the configured calendar time zone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Progress.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
