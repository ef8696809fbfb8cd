// Package logger configures the global zerolog logger for the server
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	// Level is the log level: debug, info, warn, error
	Level string
	// Format can be "json" or "console"
	Format string
	// ConsoleTimeFormat is the time format for console output
	ConsoleTimeFormat string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:             "info",
		Format:            "console",
		ConsoleTimeFormat: time.RFC3339,
	}
}

// EnvConfig loads logger configuration from environment variables
func EnvConfig() Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = format
	}

	return config
}

// Setup configures the global logger. Logs go to stderr so stdout stays free
// for the MCP stdio transport.
func Setup(config Config) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: config.ConsoleTimeFormat,
		})
	}
}
