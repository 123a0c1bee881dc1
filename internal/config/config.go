// Package config provides configuration for the depthview client.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultServerURL = "http://127.0.0.1:8750"
	DefaultLogLevel  = "info"
	DefaultDataDir   = ".depthview"
	DefaultStubPort  = 8750

	// DefaultPollIntervalMS is the progress polling cadence.
	DefaultPollIntervalMS = 500
	// DefaultNoticeTTLS is how long a surfaced error stays visible, seconds.
	DefaultNoticeTTLS = 8

	// Environment variable names
	EnvServerURL      = "DEPTHVIEW_SERVER_URL"
	EnvLogLevel       = "DEPTHVIEW_LOG_LEVEL"
	EnvDataDir        = "DEPTHVIEW_DATA_DIR"
	EnvPollIntervalMS = "DEPTHVIEW_POLL_INTERVAL_MS"
	EnvStubPort       = "DEPTHVIEW_STUB_PORT"

	// Database filename
	DBFilename = "depthview.db"
)

// Config defines the application configuration interface
type Config interface {
	ServerURL() string
	LogLevel() string
	DataDir() string
	DBPath() string
	DownloadsDir() string
	PollInterval() time.Duration
	NoticeTTL() time.Duration
	StubPort() int
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	serverURL      string
	logLevel       string
	dataDir        string
	pollIntervalMS int
	stubPort       int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		serverURL:      DefaultServerURL,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		pollIntervalMS: DefaultPollIntervalMS,
		stubPort:       DefaultStubPort,
	}

	if u := os.Getenv(EnvServerURL); u != "" {
		cfg.serverURL = u
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if pi := os.Getenv(EnvPollIntervalMS); pi != "" {
		interval, err := strconv.Atoi(pi)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPollIntervalMS, err)
		}
		if interval < 1 {
			return nil, fmt.Errorf("invalid %s: interval must be positive", EnvPollIntervalMS)
		}
		cfg.pollIntervalMS = interval
	}

	if sp := os.Getenv(EnvStubPort); sp != "" {
		port, err := strconv.Atoi(sp)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvStubPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvStubPort)
		}
		cfg.stubPort = port
	}

	return cfg, nil
}

// ServerURL returns the base URL of the depth processing service
func (c *EnvConfig) ServerURL() string {
	return c.serverURL
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// DownloadsDir returns the directory fetched result artifacts are saved to
func (c *EnvConfig) DownloadsDir() string {
	return filepath.Join(c.dataDir, "downloads")
}

// PollInterval returns the progress polling cadence
func (c *EnvConfig) PollInterval() time.Duration {
	return time.Duration(c.pollIntervalMS) * time.Millisecond
}

// NoticeTTL returns how long a surfaced error stays visible
func (c *EnvConfig) NoticeTTL() time.Duration {
	return DefaultNoticeTTLS * time.Second
}

// StubPort returns the port the development stub service listens on
func (c *EnvConfig) StubPort() int {
	return c.stubPort
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
