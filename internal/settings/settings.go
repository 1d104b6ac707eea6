package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/hostelbites"
	"github.com/MrEthical07/hostelbites/storage"
)

const appDir = "hostelbites"

// Environment overrides, applied after the file is read.
const (
	EnvBaseURL   = "HOSTELBITES_API_BASE_URL"
	EnvBackend   = "HOSTELBITES_STORAGE_BACKEND"
	EnvRedisAddr = "HOSTELBITES_REDIS_ADDR"
	EnvStatePath = "HOSTELBITES_STATE_PATH"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned for a storage backend name outside the
// Backend constants.
var ErrUnknownBackend = errors.New("settings: unknown storage backend")

// File is the on-disk CLI configuration.
type File struct {
	API     APISection     `yaml:"api"`
	Storage StorageSection `yaml:"storage"`
	Logging LoggingSection `yaml:"logging"`
	Metrics MetricsSection `yaml:"metrics"`
}

// APISection configures the backend client.
type APISection struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	OrderTimeout      time.Duration `yaml:"order_timeout"`
	OrdersListTimeout time.Duration `yaml:"orders_list_timeout"`
}

// StorageSection selects where the token and cart persist.
type StorageSection struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	Namespace string `yaml:"namespace"`
}

// LoggingSection configures the zap logger.
type LoggingSection struct {
	// Level is a zap level name. --verbose forces debug.
	Level string `yaml:"level"`
	// Encoding is "json" or "console".
	Encoding string `yaml:"encoding"`
}

// MetricsSection toggles in-process metrics.
type MetricsSection struct {
	Enabled           bool `yaml:"enabled"`
	LatencyHistograms bool `yaml:"latency_histograms"`
}

// Default mirrors hostelbites.DefaultConfig with SQLite state under the user
// config directory.
func Default() *File {
	cfg := hostelbites.DefaultConfig()
	return &File{
		API: APISection{
			BaseURL:           cfg.API.BaseURL,
			Timeout:           cfg.API.Timeout,
			OrderTimeout:      cfg.API.OrderTimeout,
			OrdersListTimeout: cfg.API.OrdersListTimeout,
		},
		Storage: StorageSection{
			Backend:   BackendSQLite,
			Path:      defaultStatePath(),
			RedisAddr: "localhost:6379",
			Namespace: cfg.Storage.Namespace,
		},
		Logging: LoggingSection{
			Level:    "warn",
			Encoding: "console",
		},
		Metrics: MetricsSection{
			Enabled:           cfg.Metrics.Enabled,
			LatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/hostelbites/config.yaml, falling back to
// the platform config directory.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func defaultStatePath() string {
	return filepath.Join(configDir(), "state.db")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return appDir
	}
	return filepath.Join(dir, appDir)
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*File, error) {
	f := Default()
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag or default location
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return f, nil
}

// ApplyEnv overlays the HOSTELBITES_* variables found by lookup.
func (f *File) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		f.API.BaseURL = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		f.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		f.Storage.RedisAddr = v
	}
	if v, ok := lookup(EnvStatePath); ok && v != "" {
		f.Storage.Path = v
	}
}

// Save writes f as YAML, creating the parent directory.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Config converts f into a validated client configuration.
func (f *File) Config() (hostelbites.Config, error) {
	cfg := hostelbites.DefaultConfig()
	cfg.API.BaseURL = f.API.BaseURL
	if f.API.Timeout > 0 {
		cfg.API.Timeout = f.API.Timeout
	}
	if f.API.OrderTimeout > 0 {
		cfg.API.OrderTimeout = f.API.OrderTimeout
	}
	if f.API.OrdersListTimeout > 0 {
		cfg.API.OrdersListTimeout = f.API.OrdersListTimeout
	}
	cfg.Storage.Namespace = f.Storage.Namespace
	cfg.Metrics.Enabled = f.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = f.Metrics.Enabled && f.Metrics.LatencyHistograms
	if err := cfg.Validate(); err != nil {
		return hostelbites.Config{}, err
	}
	return cfg, nil
}

// OpenStorage opens the configured backend. Keys are namespaced by the App,
// so backends are opened without a prefix of their own.
func (f *File) OpenStorage(ctx context.Context) (storage.Store, error) {
	switch f.Storage.Backend {
	case BackendSQLite, "":
		if f.Storage.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(f.Storage.Path), 0o700); err != nil {
				return nil, fmt.Errorf("create state dir: %w", err)
			}
		}
		db, err := storage.OpenSQLite(ctx, f.Storage.Path, "")
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendRedis:
		rdb, err := storage.DialRedis(ctx, f.Storage.RedisAddr, "")
		if err != nil {
			return nil, err
		}
		return rdb, nil
	case BackendMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, f.Storage.Backend)
	}
}

// Logger builds a production zap logger at the configured level, or debug
// when verbose is set.
func (f *File) Logger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if f.Logging.Encoding != "" {
		zc.Encoding = f.Logging.Encoding
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	level := f.Logging.Level
	if verbose {
		level = "debug"
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}
