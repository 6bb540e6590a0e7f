package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// DefaultBaselineCost is the starting capital used as the ROI denominator.
var DefaultBaselineCost = decimal.NewFromInt(200000)

type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Business BusinessConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type SourceConfig struct {
	// Location is a CSV path or an http(s) URL.
	Location     string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	CacheDir     string
}

type BusinessConfig struct {
	BaselineCost decimal.Decimal
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	baseline, err := getEnvDecimal("BASELINE_COST", DefaultBaselineCost)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Source: SourceConfig{
			Location:     getEnvString("SOURCE_LOCATION", "dataset_penjualan.csv"),
			FetchTimeout: getEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second),
			CacheTTL:     getEnvDuration("CACHE_TTL", 0),
			CacheDir:     getEnvString("CACHE_DIR", ""),
		},
		Business: BusinessConfig{
			BaselineCost: baseline,
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate reports every problem at once rather than stopping at the first.
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server read timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server write timeout must be positive")

	check(strings.TrimSpace(c.Source.Location) != "", "source location cannot be empty")
	check(c.Source.FetchTimeout > 0, "source fetch timeout must be positive")
	check(c.Source.CacheTTL >= 0, "cache TTL cannot be negative")

	check(c.Business.BaselineCost.IsPositive(), "baseline cost must be positive, got %s", c.Business.BaselineCost)

	validLogLevels := []string{"debug", "info", "warn", "error"}
	check(slices.Contains(validLogLevels, c.Logger.Level),
		"invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	validLogFormats := []string{"json", "text"}
	check(slices.Contains(validLogFormats, c.Logger.Format),
		"invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))

	check(c.Security.RateLimitRPS > 0, "rate limit RPS must be positive")
	check(c.Security.RateLimitBurst > 0, "rate limit burst must be positive")

	return errors.Join(errs...)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvDecimal reports malformed values instead of falling back to the default.
func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
