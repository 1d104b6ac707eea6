package hostelbites

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/hostelbites/api"
	"github.com/MrEthical07/hostelbites/cart"
	"github.com/MrEthical07/hostelbites/routes"
	"github.com/MrEthical07/hostelbites/session"
	"github.com/MrEthical07/hostelbites/storage"
)

// Builder assembles an App. A Builder is single use.
type Builder struct {
	config Config
	blobs  storage.Store
	logger *zap.Logger
	sink   EventSink
	http   *http.Client
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the blob store for the token and cart. The App does not
// close it. Without one, state lives in memory only.
func (b *Builder) WithStorage(s storage.Store) *Builder {
	b.blobs = s
	return b
}

// WithLogger sets the logger shared by every component. Defaults to a no-op.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithEventSink sets where events are delivered. Defaults to NoOpSink.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// WithHTTPClient replaces the http.Client used for backend calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.http = hc
	return b
}

// WithClock overrides time.Now for session expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the API latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the stores, the API client and
// the route gate together. The returned App must be started with Start.
func (b *Builder) Build() (*App, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	blobs := b.blobs
	if blobs == nil {
		blobs = storage.NewMemory()
	}
	blobs = storage.Namespace(blobs, cfg.Storage.Namespace)

	app := &App{
		config:  cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		events:  newEventDispatcher(cfg.Events, b.sink),
		now:     time.Now,
	}
	if b.now != nil {
		app.now = b.now
	}

	// -------- SESSION STORE --------
	app.sessions = session.NewStore(blobs,
		session.WithLogger(logger.Named("session")),
		session.WithClock(app.now),
		session.WithObserver(app.onSessionChange),
	)

	// -------- CART STORE --------
	app.cart = cart.NewStore(blobs,
		cart.WithLogger(logger.Named("cart")),
		cart.WithSellerSwitchHook(app.onSellerSwitch),
	)

	// -------- API CLIENT --------
	opts := []api.Option{
		api.WithLogger(logger.Named("api")),
		api.WithTokenSource(app.sessions.Token),
		api.WithRequestObserver(app.onRequest),
	}
	if b.http != nil {
		opts = append(opts, api.WithHTTPClient(b.http))
	}
	client, err := api.NewClient(api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		OrderTimeout:      cfg.API.OrderTimeout,
		OrdersListTimeout: cfg.API.OrdersListTimeout,
	}, opts...)
	if err != nil {
		app.events.Close()
		return nil, err
	}
	client.SetInvalidationListener(app.sessions.SessionInvalidated)
	app.client = client

	// -------- ROUTE GATE --------
	app.gate = routes.NewGate(app.sessions, cfg.Routes.Rules, cfg.Routes.Public)

	b.built = true

	return app, nil
}
