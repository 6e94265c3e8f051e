// Package config loads Deep Lynx connection settings from the process
// environment. Settings are read once at startup and treated as immutable.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read by Load.
const (
	EnvURL         = "DEEP_LYNX_URL"
	EnvContainerID = "DEEP_LYNX_CONTAINER_ID"
	EnvAPIKey      = "DEEP_LYNX_API_KEY"
	EnvAPISecret   = "DEEP_LYNX_API_SECRET"

	// Optional tuning knobs.
	EnvTimeout   = "DEEP_LYNX_TIMEOUT"
	EnvLotQPS    = "DEEP_LYNX_LOT_QPS"
	EnvLogLevel  = "DEEP_LYNX_LOG_LEVEL"
	EnvLogFormat = "DEEP_LYNX_LOG_FORMAT"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultURL     = "http://localhost:8090"
	DefaultTimeout = 30 * time.Second
)

// Error describes a missing or invalid configuration value.
type Error struct {
	Var    string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Var, e.Reason)
}

// Config holds the Deep Lynx connection parameters.
type Config struct {
	// URL is the base URL of the Deep Lynx instance.
	URL string

	// ContainerID identifies the container whose records are queried.
	ContainerID int64

	// APIKey and APISecret authenticate the OAuth token exchange.
	APIKey    string
	APISecret string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// LotQPS rate-limits per-lot record queries. Zero means unlimited.
	LotQPS float64

	// Log configures the logger.
	Log LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present, matching how deployments ship secrets
// alongside the binary. Missing required values return *Error.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	for _, key := range []string{
		EnvURL, EnvContainerID, EnvAPIKey, EnvAPISecret,
		EnvTimeout, EnvLotQPS, EnvLogLevel, EnvLogFormat,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	v.SetDefault(EnvURL, DefaultURL)
	v.SetDefault(EnvTimeout, DefaultTimeout.String())
	v.SetDefault(EnvLogLevel, "info")
	v.SetDefault(EnvLogFormat, "console")

	cfg := &Config{
		URL:       v.GetString(EnvURL),
		APIKey:    v.GetString(EnvAPIKey),
		APISecret: v.GetString(EnvAPISecret),
		LotQPS:    v.GetFloat64(EnvLotQPS),
		Log: LogConfig{
			Level:  v.GetString(EnvLogLevel),
			Format: v.GetString(EnvLogFormat),
		},
	}

	rawID := v.GetString(EnvContainerID)
	if rawID == "" {
		return nil, &Error{Var: EnvContainerID, Reason: "required value is not set"}
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, &Error{Var: EnvContainerID, Reason: fmt.Sprintf("not an integer: %q", rawID)}
	}
	cfg.ContainerID = id

	rawTimeout := v.GetString(EnvTimeout)
	timeout, err := time.ParseDuration(rawTimeout)
	if err != nil {
		return nil, &Error{Var: EnvTimeout, Reason: fmt.Sprintf("not a duration: %q", rawTimeout)}
	}
	cfg.Timeout = timeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.URL == "" {
		return &Error{Var: EnvURL, Reason: "required value is not set"}
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return &Error{Var: EnvURL, Reason: fmt.Sprintf("not a valid URL: %q", c.URL)}
	}
	if c.APIKey == "" {
		return &Error{Var: EnvAPIKey, Reason: "required value is not set"}
	}
	if c.APISecret == "" {
		return &Error{Var: EnvAPISecret, Reason: "required value is not set"}
	}
	if c.Timeout <= 0 {
		return &Error{Var: EnvTimeout, Reason: "must be positive"}
	}
	if c.LotQPS < 0 {
		return &Error{Var: EnvLotQPS, Reason: "cannot be negative"}
	}
	return nil
}
