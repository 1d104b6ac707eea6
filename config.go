package hostelbites

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/routes"
	"github.com/MrEthical07/hostelbites/session"
)

// Config holds everything an App needs besides its collaborators.
//
// Config values are copied by the Builder; mutating one after WithConfig has
// no effect on the App.
type Config struct {
	API     APIConfig
	Storage StorageConfig
	Routes  RoutesConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the marketplace backend.
type APIConfig struct {
	BaseURL           string
	Timeout           time.Duration
	OrderTimeout      time.Duration
	OrdersListTimeout time.Duration
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig scopes the blob keys. Backends add Namespace as a key prefix
// so several profiles can share one store.
type StorageConfig struct {
	Namespace string
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig is the view permission table. Nil slices select
// routes.DefaultRules and routes.DefaultPublic.
type RoutesConfig struct {
	Rules  []routes.Rule
	Public []string
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls asynchronous event delivery.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull counts and drops events instead of blocking the caller when
	// the buffer is full.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the API latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a Config pointing at a local backend with events and
// metrics on.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:           api.DefaultBaseURL,
			Timeout:           api.DefaultTimeout,
			OrderTimeout:      30 * time.Second,
			OrdersListTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Namespace: "hostelbites",
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Routes.Rules != nil {
		out.Routes.Rules = make([]routes.Rule, len(cfg.Routes.Rules))
		for i, r := range cfg.Routes.Rules {
			out.Routes.Rules[i] = routes.Rule{
				Prefix: r.Prefix,
				Roles:  append([]session.Role(nil), r.Roles...),
			}
		}
	}
	if cfg.Routes.Public != nil {
		out.Routes.Public = append([]string(nil), cfg.Routes.Public...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.OrderTimeout <= 0 {
		return errors.New("API OrderTimeout must be > 0")
	}
	if c.API.OrdersListTimeout <= 0 {
		return errors.New("API OrdersListTimeout must be > 0")
	}

	// Storage
	if strings.ContainsAny(c.Storage.Namespace, ": \t\n") {
		return errors.New("Storage Namespace must not contain ':' or whitespace")
	}

	// Routes
	for _, r := range c.Routes.Rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("route prefix %q must start with /", r.Prefix)
		}
		for _, role := range r.Roles {
			if !role.Valid() {
				return fmt.Errorf("route %q names unknown role %q", r.Prefix, role)
			}
		}
	}
	for _, p := range c.Routes.Public {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("public path %q must start with /", p)
		}
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
