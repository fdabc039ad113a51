package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL       = "http://localhost:8000"
	DefaultPollInterval     = time.Second
	DefaultMaxPollAttempts  = 180
	DefaultProgressInterval = 2 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultPrefsDebounce    = 300 * time.Millisecond
)

type Config struct {
	BackendURL     string        `json:"backend_url"`
	RequestTimeout time.Duration `json:"request_timeout"`

	// Polling budget for a submitted job. The timeout is attempt based,
	// so slow round-trips stretch the wall-clock total.
	PollInterval     time.Duration `json:"poll_interval"`
	MaxPollAttempts  int           `json:"max_poll_attempts"`
	ProgressInterval time.Duration `json:"progress_interval"`

	DataDir       string        `json:"data_dir"`
	PrefsPath     string        `json:"prefs_path"`
	PrefsDebounce time.Duration `json:"prefs_debounce"`
	HistoryDB     string        `json:"history_db"`

	LogFile    string `json:"log_file"`
	Debug      bool   `json:"debug"`
	LiveStatus bool   `json:"live_status"`
}

func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	cfg := &Config{
		BackendURL:       DefaultBackendURL,
		RequestTimeout:   DefaultRequestTimeout,
		PollInterval:     DefaultPollInterval,
		MaxPollAttempts:  DefaultMaxPollAttempts,
		ProgressInterval: DefaultProgressInterval,

		DataDir:       dataDir,
		PrefsPath:     filepath.Join(dataDir, "form.json"),
		PrefsDebounce: DefaultPrefsDebounce,
		HistoryDB:     filepath.Join(dataDir, "history.db"),
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.Getwd()
		if err != nil {
			dir = "."
		}
	}
	return filepath.Join(dir, "cortexctl")
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("CORTEXCTL_BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("CORTEXCTL_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RequestTimeout = d
		}
	}
	if val := os.Getenv("CORTEXCTL_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.PollInterval = d
		}
	}
	if val := os.Getenv("CORTEXCTL_MAX_POLL_ATTEMPTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxPollAttempts = v
		}
	}
	if val := os.Getenv("CORTEXCTL_PROGRESS_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ProgressInterval = d
		}
	}

	if val := os.Getenv("CORTEXCTL_DATA_DIR"); val != "" {
		c.DataDir = val
		c.PrefsPath = filepath.Join(val, "form.json")
		c.HistoryDB = filepath.Join(val, "history.db")
	}
	if val := os.Getenv("CORTEXCTL_PREFS_PATH"); val != "" {
		c.PrefsPath = val
	}
	if val := os.Getenv("CORTEXCTL_HISTORY_DB"); val != "" {
		c.HistoryDB = val
	}

	if val := os.Getenv("CORTEXCTL_LOG_FILE"); val != "" {
		c.LogFile = val
	}
	if val := os.Getenv("CORTEXCTL_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("CORTEXCTL_LIVE_STATUS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.LiveStatus = enabled
		}
	}
}

// Validate rejects settings the poller cannot work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("backend url is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxPollAttempts < 1 {
		return fmt.Errorf("max poll attempts must be at least 1, got %d", c.MaxPollAttempts)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.PrefsPath), filepath.Dir(c.HistoryDB)}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
