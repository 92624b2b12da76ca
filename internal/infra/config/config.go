package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"
	_ "time/tzdata" // TZ must resolve without the system zoneinfo database

	"github.com/joho/godotenv"
)

// Environment variable names read by Load.
const (
	EnvDebugMode          = "DEBUG_MODE"
	EnvAirDCIP            = "AIRDC_IP"
	EnvAirDCPort          = "AIRDC_PORT"
	EnvAirDCUser          = "AIRDC_USER"
	EnvAirDCPassword      = "AIRDC_PASSWORD"
	EnvTelegramBotToken   = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID     = "TELEGRAM_CHAT_ID"
	EnvLogLevel           = "LOG_LEVEL"
	EnvEnvironment        = "ENVIRONMENT"
	EnvTimezone           = "TZ"
	EnvAirDCScheme        = "AIRDC_SCHEME"
	EnvHTTPTimeout        = "HTTP_TIMEOUT"
	EnvPollSchedule       = "POLL_SCHEDULE"
	EnvCleanupSchedule    = "CLEANUP_SCHEDULE"
	EnvErrorBackoff       = "ERROR_BACKOFF"
	EnvHistoryDriver      = "HISTORY_DRIVER"
	EnvDatabaseURL        = "DATABASE_URL"
	EnvMetricsAddr        = "METRICS_ADDR"
	EnvTelegramAPIURL     = "TELEGRAM_API_URL"
	EnvBotCommandsEnabled = "BOT_COMMANDS_ENABLED"
	EnvMessageDetailed    = "MESSAGE_DETAILED"
)

// History drivers accepted by HISTORY_DRIVER.
const (
	HistoryDriverMemory   = "memory"
	HistoryDriverSQLite   = "sqlite"
	HistoryDriverPostgres = "postgres"
)

const (
	defaultTimezone        = "Europe/Madrid"
	defaultAirDCScheme     = "http"
	defaultHTTPTimeout     = 10 * time.Second
	defaultPollSchedule    = "@every 10s"
	defaultCleanupSchedule = "@every 1h"
	defaultErrorBackoff    = 30 * time.Second
	defaultTelegramAPIURL  = "https://api.telegram.org"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DebugMode bool

	AirDCIP       string
	AirDCPort     int
	AirDCUser     string
	AirDCPassword string
	AirDCScheme   string

	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string

	LogLevel    string
	Environment string
	Timezone    string
	Location    *time.Location

	HTTPTimeout     time.Duration
	PollSchedule    string
	CleanupSchedule string
	ErrorBackoff    time.Duration

	HistoryDriver string
	DatabaseURL   string

	MetricsAddr        string
	BotCommandsEnabled bool
	MessageDetailed    bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DebugMode, err = parseFlag(EnvDebugMode, os.Getenv(EnvDebugMode))
	if err != nil {
		return nil, err
	}

	required := []struct {
		name string
		dst  *string
	}{
		{EnvAirDCIP, &cfg.AirDCIP},
		{EnvAirDCPort, nil},
		{EnvAirDCUser, &cfg.AirDCUser},
		{EnvAirDCPassword, &cfg.AirDCPassword},
		{EnvTelegramBotToken, &cfg.TelegramBotToken},
		{EnvTelegramChatID, &cfg.TelegramChatID},
	}
	for _, r := range required {
		value := strings.TrimSpace(os.Getenv(r.name))
		if value == "" {
			return nil, fmt.Errorf("%s is not set", r.name)
		}
		if r.dst != nil {
			*r.dst = value
		}
	}

	cfg.AirDCPort, err = strconv.Atoi(strings.TrimSpace(os.Getenv(EnvAirDCPort)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvAirDCPort, err)
	}
	if cfg.AirDCPort < 1 || cfg.AirDCPort > 65535 {
		return nil, fmt.Errorf("invalid %s: %d is out of range", EnvAirDCPort, cfg.AirDCPort)
	}

	cfg.AirDCScheme = strings.ToLower(getOr(EnvAirDCScheme, defaultAirDCScheme))
	if cfg.AirDCScheme != "http" && cfg.AirDCScheme != "https" {
		return nil, fmt.Errorf("invalid %s: %q", EnvAirDCScheme, cfg.AirDCScheme)
	}

	cfg.TelegramAPIURL = strings.TrimRight(getOr(EnvTelegramAPIURL, defaultTelegramAPIURL), "/")

	cfg.LogLevel = strings.ToLower(os.Getenv(EnvLogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.DebugMode {
			cfg.LogLevel = "debug"
		}
	}

	cfg.Environment = strings.ToLower(getOr(EnvEnvironment, "development"))

	cfg.Timezone = getOr(EnvTimezone, defaultTimezone)
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}

	if cfg.HTTPTimeout, err = parseDuration(EnvHTTPTimeout, defaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.ErrorBackoff, err = parseDuration(EnvErrorBackoff, defaultErrorBackoff); err != nil {
		return nil, err
	}

	cfg.PollSchedule = getOr(EnvPollSchedule, defaultPollSchedule)
	cfg.CleanupSchedule = getOr(EnvCleanupSchedule, defaultCleanupSchedule)

	cfg.HistoryDriver = strings.ToLower(getOr(EnvHistoryDriver, HistoryDriverMemory))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	switch cfg.HistoryDriver {
	case HistoryDriverMemory:
	case HistoryDriverSQLite, HistoryDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%s is not set (required by %s=%s)", EnvDatabaseURL, EnvHistoryDriver, cfg.HistoryDriver)
		}
	default:
		return nil, fmt.Errorf("invalid %s: %q", EnvHistoryDriver, cfg.HistoryDriver)
	}

	cfg.MetricsAddr = strings.TrimSpace(os.Getenv(EnvMetricsAddr))

	if cfg.BotCommandsEnabled, err = parseFlag(EnvBotCommandsEnabled, os.Getenv(EnvBotCommandsEnabled)); err != nil {
		return nil, err
	}
	if cfg.MessageDetailed, err = parseFlag(EnvMessageDetailed, os.Getenv(EnvMessageDetailed)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AirDCAddress returns host:port of the AirDC++ Web API.
func (c *AppConfig) AirDCAddress() string {
	return net.JoinHostPort(c.AirDCIP, strconv.Itoa(c.AirDCPort))
}

func getOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

// parseFlag accepts integers (non-zero is true) as well as strconv booleans.
func parseFlag(name, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n != 0, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return b, nil
}

func parseDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}
