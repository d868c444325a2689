package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	URI    string `yaml:"uri"`
}

type PollConfig struct {
	OrderTrackerSeconds    int `yaml:"order_tracker_seconds"`
	DashboardOrdersSeconds int `yaml:"dashboard_orders_seconds"`
	DashboardCallsSeconds  int `yaml:"dashboard_calls_seconds"`
	FailureBudget          int `yaml:"failure_budget"`
}

type Config struct {
	Env             string         `yaml:"env"`
	Port            string         `yaml:"port"`
	Database        DatabaseConfig `yaml:"database"`
	JWTSecret       string         `yaml:"jwt_secret"`
	AMQPURL         string         `yaml:"amqp_url"`
	PrepTimeMinutes int            `yaml:"prep_time_minutes"`
	Poll            PollConfig     `yaml:"poll"`
}

func defaultConfig() *Config {
	return &Config{
		Env:  "development",
		Port: ":8080",
		Database: DatabaseConfig{
			Driver: "sqlite",
			URI:    "test.db",
		},
		PrepTimeMinutes: 20,
		Poll: PollConfig{
			OrderTrackerSeconds:    10,
			DashboardOrdersSeconds: 30,
			DashboardCallsSeconds:  3,
			FailureBudget:          5,
		},
	}
}

// LoadConfig reads the optional yaml config file, then applies .env /
// environment variable overrides on top. A missing config file is fine;
// a present but unreadable one is not.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URI = getEnv("DATABASE_URI", cfg.Database.URI)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	if v := os.Getenv("PREP_TIME_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PREP_TIME_MINUTES: %w", err)
		}
		cfg.PrepTimeMinutes = minutes
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.Port) > 0 && cfg.Port[0] != ':' {
		cfg.Port = ":" + cfg.Port
	}

	return cfg, nil
}

// PrepTime is the configured default preparation estimate used by the
// order progress bar. Non-authoritative.
func (c *Config) PrepTime() time.Duration {
	return time.Duration(c.PrepTimeMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
