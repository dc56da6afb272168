package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	errInvalidPort           = errors.New("config: invalid PORT number")
	errConcurrencyOutOfRange = errors.New("config: MAX_CONCURRENT_FETCHES must be 1-100")
	errNonPositiveTimeout    = errors.New("config: timeouts must be positive")
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port                 string
	LogLevel             string
	UserAgent            string
	MaxConcurrentFetches int
	RequestTimeout       time.Duration
	PageFetchTimeout     time.Duration
	SizeFetchTimeout     time.Duration
	ShutdownTimeout      time.Duration
	AllowPrivateNetworks bool
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file in the working directory are loaded first when
// the file exists; variables already set in the environment take precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "ERROR"),
		UserAgent:            getEnv("USER_AGENT", "ImageScraperBot/1.0"),
		MaxConcurrentFetches: getEnvAsInt("MAX_CONCURRENT_FETCHES", 10),
		RequestTimeout:       getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		PageFetchTimeout:     getEnvAsDuration("PAGE_FETCH_TIMEOUT", 10*time.Second),
		SizeFetchTimeout:     getEnvAsDuration("SIZE_FETCH_TIMEOUT", 5*time.Second),
		ShutdownTimeout:      getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowPrivateNetworks: getEnvAsBool("ALLOW_PRIVATE_NETWORKS", false),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.MaxConcurrentFetches < 1 || c.MaxConcurrentFetches > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.MaxConcurrentFetches)
	}

	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":    c.RequestTimeout,
		"PAGE_FETCH_TIMEOUT": c.PageFetchTimeout,
		"SIZE_FETCH_TIMEOUT": c.SizeFetchTimeout,
		"SHUTDOWN_TIMEOUT":   c.ShutdownTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s=%s", errNonPositiveTimeout, name, d)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}
