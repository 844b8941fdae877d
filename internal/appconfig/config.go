package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/coderun/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Backend       BackendConfig `mapstructure:"backend" yaml:"backend"`
	Session       SessionConfig `mapstructure:"session" yaml:"session"`
	Mock          MockConfig    `mapstructure:"mock" yaml:"mock"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// BackendConfig points the client at an execution backend.
type BackendConfig struct {
	BaseURL               string            `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeoutSeconds int               `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	Headers               map[string]string `mapstructure:"headers" yaml:"headers"`
}

// SessionConfig tunes the session client.
type SessionConfig struct {
	PollIntervalMS         int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	FinishedMarker         string `mapstructure:"finished_marker" yaml:"finished_marker"`
	TeardownTimeoutSeconds int    `mapstructure:"teardown_timeout_seconds" yaml:"teardown_timeout_seconds"`
	TranscriptMaxBytes     int    `mapstructure:"transcript_max_bytes" yaml:"transcript_max_bytes"`
}

// MockConfig configures the bundled mock backend.
type MockConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".coderun", "state"),
		Backend: BackendConfig{
			BaseURL:               "http://127.0.0.1:5000",
			RequestTimeoutSeconds: 10,
			Headers:               map[string]string{},
		},
		Session: SessionConfig{
			PollIntervalMS:         int(schema.DefaultPollInterval / time.Millisecond),
			FinishedMarker:         schema.DefaultFinishedMarker,
			TeardownTimeoutSeconds: int(schema.DefaultTeardownTimeout / time.Second),
			TranscriptMaxBytes:     schema.DefaultTranscriptMaxBytes,
		},
		Mock: MockConfig{
			Addr: "127.0.0.1:5000",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".coderun", "config.yaml"), nil
}

// RequestTimeout returns the per-request backend timeout.
func (c BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SessionConfig converts the file settings into session client settings.
func (c Config) SessionConfig() schema.SessionConfig {
	return schema.SessionConfig{
		PollInterval:       time.Duration(c.Session.PollIntervalMS) * time.Millisecond,
		TeardownTimeout:    time.Duration(c.Session.TeardownTimeoutSeconds) * time.Second,
		FinishedMarker:     c.Session.FinishedMarker,
		TranscriptMaxBytes: c.Session.TranscriptMaxBytes,
	}
}
