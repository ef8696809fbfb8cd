// Package config provides the engine's defaults and environment overrides
package config

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults for the sync engine's timing knobs. The debounce window trades
// notification latency against burst collapsing; the poll interval only
// matters when the polling fallback is active.
const (
	DefaultDebounceWindow = 100 * time.Millisecond
	DefaultPollInterval   = time.Second
	DefaultTokenTTL       = 30 * time.Second
	DefaultTokenSweep     = 10 * time.Second
)

// Config holds the server's engine configuration
type Config struct {
	// RootDir is the directory the backing store is rooted at.
	RootDir string
	// DebounceWindow is the per-path trailing debounce for change records.
	DebounceWindow time.Duration
	// PollInterval is the polling strategy's snapshot interval.
	PollInterval time.Duration
	// TokenTTL is how long a write-intent token stays matchable.
	TokenTTL time.Duration
	// TokenSweep is the interval of the token registry's expiry sweep.
	TokenSweep time.Duration
	// ForcePolling disables the native notification strategy.
	ForcePolling bool
}

// Default returns the default configuration rooted at the working directory
func Default() Config {
	return Config{
		RootDir:        ".",
		DebounceWindow: DefaultDebounceWindow,
		PollInterval:   DefaultPollInterval,
		TokenTTL:       DefaultTokenTTL,
		TokenSweep:     DefaultTokenSweep,
	}
}

// FromEnv loads the configuration from environment variables, falling back
// to defaults for anything unset or unparsable
func FromEnv() Config {
	config := Default()

	if root := os.Getenv("SYNC_ROOT"); root != "" {
		config.RootDir = root
	}
	config.DebounceWindow = envDuration("SYNC_DEBOUNCE", config.DebounceWindow)
	config.PollInterval = envDuration("SYNC_POLL_INTERVAL", config.PollInterval)
	config.TokenTTL = envDuration("SYNC_TOKEN_TTL", config.TokenTTL)
	config.TokenSweep = envDuration("SYNC_TOKEN_SWEEP", config.TokenSweep)

	if force := os.Getenv("SYNC_FORCE_POLLING"); force == "1" || force == "true" {
		config.ForcePolling = true
	}

	return config
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("var", name).Str("value", raw).Msg("Ignoring invalid duration")
		return fallback
	}
	return d
}
