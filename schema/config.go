package schema

import (
	"errors"
	"strings"
	"time"
)

// SessionConfig defines timing and display limits for a session client.
type SessionConfig struct {
	PollInterval       time.Duration
	TeardownTimeout    time.Duration
	FinishedMarker     string
	TranscriptMaxBytes int
}

// DefaultPollInterval is the delay between two /output requests.
const DefaultPollInterval = 50 * time.Millisecond

// DefaultTeardownTimeout bounds background terminate requests.
const DefaultTeardownTimeout = 5 * time.Second

// DefaultTranscriptMaxBytes caps the transcript size; older text is dropped.
const DefaultTranscriptMaxBytes = 1 << 20

// NormalizeSessionConfig applies defaults and validates the config.
func NormalizeSessionConfig(cfg SessionConfig) (SessionConfig, error) {
	if cfg.PollInterval < 0 {
		return SessionConfig{}, errors.New("poll interval must not be negative")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = DefaultTeardownTimeout
	}
	if strings.TrimSpace(cfg.FinishedMarker) == "" {
		cfg.FinishedMarker = DefaultFinishedMarker
	}
	if strings.Contains(cfg.FinishedMarker, "\n") {
		return SessionConfig{}, errors.New("finished marker must be a single line")
	}
	if cfg.TranscriptMaxBytes <= 0 {
		cfg.TranscriptMaxBytes = DefaultTranscriptMaxBytes
	}
	return cfg, nil
}
