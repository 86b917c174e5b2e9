package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const devJWTSecret = "dev-secret-change-in-production"

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	Port           string        `toml:"port"`
	Env            string        `toml:"env"`
	StoreDriver    string        `toml:"store_driver"`
	MongoURI       string        `toml:"mongo_uri"`
	MongoDatabase  string        `toml:"mongo_database"`
	DatabaseDSN    string        `toml:"database_dsn"`
	JWTSecret      string        `toml:"jwt_secret"`
	JWTExpiry      time.Duration `toml:"-"`
	BcryptCost     int           `toml:"bcrypt_cost"`
	LogLevel       string        `toml:"log_level"`
	LogFile        string        `toml:"log_file"`
	RateLimitRPS   float64       `toml:"rate_limit_rps"`
	RateLimitBurst int           `toml:"rate_limit_burst"`

	// JWTExpiryRaw holds the TOML form of JWTExpiry, e.g. "72h" or "0".
	JWTExpiryRaw string `toml:"jwt_expiry"`
}

func defaults() Config {
	return Config{
		Port:           "3000",
		Env:            "development",
		StoreDriver:    StoreMongo,
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "TodoApp",
		DatabaseDSN:    "root:password@tcp(127.0.0.1:3306)/todoapp?parseTime=true",
		JWTSecret:      devJWTSecret,
		BcryptCost:     10,
		LogLevel:       "info",
		RateLimitRPS:   5,
		RateLimitBurst: 10,
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// CONFIG_FILE (if any), then environment variables, in increasing precedence.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if cfg.JWTExpiryRaw != "" {
			d, err := time.ParseDuration(cfg.JWTExpiryRaw)
			if err != nil {
				return Config{}, fmt.Errorf("config file jwt_expiry: %w", err)
			}
			cfg.JWTExpiry = d
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	var err error
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", cfg.JWTExpiry); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production environment")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
