// Package logging configures zerolog for the gateway and its libraries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Service is attached to every entry as "service" when set.
	Service string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a JSON logger at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Service: "seo-insights",
		Output:  os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger for one component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// ForPage narrows a component logger to one results page and user.
func ForPage(logger zerolog.Logger, page, userID string) zerolog.Logger {
	ctx := logger.With().Str("page", page)
	if userID != "" {
		ctx = ctx.Str("user_id", userID)
	}
	return ctx.Logger()
}

// Log Level Guidelines:
//
// Debug: cache hit/miss, generation tokens, superseded runs, retry backoff.
// Info: completed runs, credit deductions, server startup/shutdown.
// Warn: insufficient credits, retries, cache errors, expired Google tokens.
// Error: fetch failures after retries, deduction failures, configuration errors.
//
// Context Fields:
//   - component: package-level component name
//   - page: results page (keyword_overview, ppa, traffic_share, ...)
//   - user_id: caller identity from X-User-Id
//   - function: backend function name
//   - generation: controller run token
//   - cost, label: credit deduction details
//   - error_class: client, server, rate_limit, network
