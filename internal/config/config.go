package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string  `mapstructure:"PORT"`
	Env                string  `mapstructure:"ENV"`
	DatabaseURL        string  `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32   `mapstructure:"DB_MIN_CONNS"`
	SchedulingBaseURL  string  `mapstructure:"SCHEDULING_BASE_URL"`
	SchedulingAPIKey   string  `mapstructure:"SCHEDULING_API_KEY"`
	ServiceTokenSecret string  `mapstructure:"SERVICE_TOKEN_SECRET"`
	SequenceSeed       int64   `mapstructure:"SEQUENCE_SEED"`
	ControlCtLimit     float64 `mapstructure:"CONTROL_CT_LIMIT"`
	MigrationsDir      string  `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SEQUENCE_SEED", 10000)
	v.SetDefault("CONTROL_CT_LIMIT", 40)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SCHEDULING_BASE_URL")
	v.BindEnv("SCHEDULING_API_KEY")
	v.BindEnv("SERVICE_TOKEN_SECRET")
	v.BindEnv("SEQUENCE_SEED")
	v.BindEnv("CONTROL_CT_LIMIT")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if !cfg.IsDev() && cfg.ServiceTokenSecret == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN_SECRET is required outside development")
	}
	if cfg.SequenceSeed < 0 {
		return nil, fmt.Errorf("SEQUENCE_SEED must not be negative")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
