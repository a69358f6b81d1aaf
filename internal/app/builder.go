package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fivethreefive/legisync/internal/api"
	"github.com/fivethreefive/legisync/internal/clock"
	"github.com/fivethreefive/legisync/internal/config"
	"github.com/fivethreefive/legisync/internal/credential"
	"github.com/fivethreefive/legisync/internal/detect"
	"github.com/fivethreefive/legisync/internal/httpclient"
	"github.com/fivethreefive/legisync/internal/publish"
	"github.com/fivethreefive/legisync/internal/status"
	"github.com/fivethreefive/legisync/internal/store"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
	"github.com/fivethreefive/legisync/internal/sync/coordinator"
	"github.com/fivethreefive/legisync/internal/telemetry"
	"github.com/fivethreefive/legisync/internal/throttle"
	"github.com/fivethreefive/legisync/internal/upstream"
	"github.com/fivethreefive/legisync/internal/versions"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// throttle targets, used as metric attributes
	targetUpstream = "upstream"
	targetPublish  = "publish"
)

// LegisyncAppOptions is a function that configures the app builder
type LegisyncAppOptions func(*legisyncAppConfig) error

// legisyncAppConfig collects the builder inputs. Component overrides exist for tests.
type legisyncAppConfig struct {
	config *config.Config

	// Optional component overrides
	source      pkgsync.Source
	publisher   pkgsync.Publisher
	syncManager pkgsync.Manager
	telemetry   *telemetry.Telemetry
	clock       clock.Clock

	// HTTP server options; an empty address disables the ops server
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	dataDir string
}

func baseConfig(opts ...LegisyncAppOptions) (*legisyncAppConfig, error) {
	cfg := &legisyncAppConfig{
		clock:          clock.Real{},
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.dataDir == "" {
		cfg.dataDir = cfg.config.DataDir
	}

	return cfg, nil
}

// NewLegisyncApp builds every component from the configuration and options
func NewLegisyncApp(ctx context.Context, opts ...LegisyncAppOptions) (*LegisyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	components, err := buildSyncComponents(cfg)
	if err != nil {
		_ = cfg.telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	var httpServer *http.Server
	if cfg.address != "" {
		httpServer, err = buildHTTPServer(cfg, components.Statuses)
		if err != nil {
			_ = cfg.telemetry.Shutdown(ctx)
			return nil, fmt.Errorf("failed to build HTTP server: %w", err)
		}
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &LegisyncApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress enables the ops server on addr
func WithAddress(addr string) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithDataDirectory overrides the configured data directory
func WithDataDirectory(dir string) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.dataDir = dir
		return nil
	}
}

// WithSource replaces the upstream client
func WithSource(s pkgsync.Source) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.source = s
		return nil
	}
}

// WithPublisher replaces the publish client
func WithPublisher(p pkgsync.Publisher) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.publisher = p
		return nil
	}
}

// WithSyncManager replaces the sync manager
func WithSyncManager(sm pkgsync.Manager) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithTelemetry uses already initialized providers
func WithTelemetry(t *telemetry.Telemetry) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// WithClock sets the time source of limiters, credentials and cursors
func WithClock(c clock.Clock) LegisyncAppOptions {
	return func(cfg *legisyncAppConfig) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// telemetryConfig fills in the service version of the binary.
func telemetryConfig(c *telemetry.Config) *telemetry.Config {
	if c == nil {
		return nil
	}
	out := *c
	if out.ServiceVersion == "" {
		out.ServiceVersion = versions.GetVersionInfo().Version
	}
	return &out
}

// buildSyncComponents builds the store, clients, sync manager and coordinator
func buildSyncComponents(b *legisyncAppConfig) (*AppComponents, error) {
	slog.Info("Initializing sync components", "data_dir", b.dataDir)

	st, err := store.NewFileStore(b.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create record store: %w", err)
	}
	statuses := status.NewFileStatusPersistence(b.dataDir)

	meterProvider := b.telemetry.MeterProvider()

	if b.syncManager == nil {
		throttleMetrics, err := telemetry.NewThrottleMetrics(meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create throttle metrics: %w", err)
		}

		if b.source == nil {
			b.source = buildSource(b.config, b.clock, throttleMetrics)
		}
		if b.publisher == nil {
			b.publisher, err = buildPublisher(b.config, b.clock, throttleMetrics)
			if err != nil {
				return nil, err
			}
		}

		detector, err := buildDetector(b.config.PublishedFields)
		if err != nil {
			return nil, err
		}

		syncMetrics, err := telemetry.NewSyncMetrics(meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}

		b.syncManager = pkgsync.NewDefaultSyncManager(b.source, b.publisher, st, detector,
			pkgsync.WithChambers(b.config.Chambers...),
			pkgsync.WithWorkers(b.config.Workers),
			pkgsync.WithClock(b.clock),
			pkgsync.WithTracer(b.telemetry.Tracer()),
			pkgsync.WithMetrics(syncMetrics),
		)
	}

	coordOpts := []coordinator.Option{coordinator.WithClock(b.clock)}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	if syncMetrics != nil {
		coordOpts = append(coordOpts, coordinator.WithSyncMetrics(syncMetrics))
	}

	syncCoordinator := coordinator.New(b.syncManager, statuses, coordinator.Config{
		Interval:       b.config.GetSyncInterval(),
		Lookback:       b.config.GetLookback(),
		RememberCursor: b.config.RememberCursor,
	}, coordOpts...)

	slog.Info("Sync components initialized successfully",
		"chambers", b.config.Chambers,
		"workers", b.config.Workers,
	)

	return &AppComponents{
		Store:           st,
		Statuses:        statuses,
		SyncManager:     b.syncManager,
		SyncCoordinator: syncCoordinator,
		Telemetry:       b.telemetry,
	}, nil
}

// buildSource creates the upstream client behind its own throttled transport.
func buildSource(cfg *config.Config, clk clock.Clock, metrics *telemetry.ThrottleMetrics) *upstream.Client {
	limiter := throttle.NewLimiter(cfg.Upstream.RequestsPerMinute, throttle.WithLimiterClock(clk))
	caller := throttle.NewClient(targetUpstream, cfg.Upstream.BaseURL, limiter,
		throttle.WithAuthorizer(&throttle.APIKeyAuthorizer{Key: cfg.Upstream.APIKey}),
		throttle.WithHTTPClient(httpclient.NewDefaultClient(cfg.Upstream.GetTimeout(), "")),
		throttle.WithMetrics(metrics),
	)
	return upstream.NewClient(caller)
}

// buildPublisher creates the publish client. Its bearer token comes from a password
// grant managed by a credential.Manager.
func buildPublisher(cfg *config.Config, clk clock.Clock, metrics *telemetry.ThrottleMetrics) (*publish.Reddit, error) {
	p := cfg.Publish

	exchanger, err := credential.NewOAuth2Exchanger(credential.PasswordGrantConfig{
		TokenURL:     p.TokenURL,
		ClientID:     p.AppID,
		ClientSecret: p.AppSecret,
		Username:     p.Username,
		Password:     p.Password,
		UserAgent:    p.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create credential exchanger: %w", err)
	}
	credentials := credential.NewManager(exchanger,
		credential.WithClock(clk),
		credential.WithSafetyMargin(p.GetTokenSafetyMargin()),
	)

	limiter := throttle.NewLimiter(p.RequestsPerMinute,
		throttle.WithLimiterClock(clk),
		throttle.WithBlocking(p.IsBlocking()),
	)
	caller := throttle.NewClient(targetPublish, p.BaseURL, limiter,
		throttle.WithAuthorizer(&throttle.BearerAuthorizer{Credentials: credentials}),
		throttle.WithHTTPClient(httpclient.NewDefaultClient(0, p.UserAgent)),
		throttle.WithMetrics(metrics),
	)

	return publish.NewReddit(caller, p.Subreddit, publish.WithFlair(p.Flair)), nil
}

func buildDetector(fields config.PublishedFieldsConfig) (*detect.Detector, error) {
	var opts []detect.Option
	if len(fields.Bill) > 0 {
		opts = append(opts, detect.WithBillFields(fields.Bill...))
	}
	if len(fields.Vote) > 0 {
		opts = append(opts, detect.WithVoteFields(fields.Vote...))
	}
	detector, err := detect.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid publishedFields: %w", err)
	}
	return detector, nil
}

// buildHTTPServer builds the ops server with router and middleware
func buildHTTPServer(b *legisyncAppConfig, statuses status.StatusPersistence) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RealIP,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if httpMetrics != nil {
		// first, so rejected requests are counted too
		b.middlewares = append([]func(http.Handler) http.Handler{httpMetrics.Middleware}, b.middlewares...)
	}

	router := api.NewServer(statuses,
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(b.telemetry.MetricsHandler()),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
