// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/analyzer"
	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/cache/redis"
	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/config"
	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/discovery"
	"github.com/JakeFAU/tubescout/internal/export"
	"github.com/JakeFAU/tubescout/internal/fetcher"
	"github.com/JakeFAU/tubescout/internal/hash/sha256"
	"github.com/JakeFAU/tubescout/internal/id/uuid"
	"github.com/JakeFAU/tubescout/internal/logging"
	"github.com/JakeFAU/tubescout/internal/metrics"
	"github.com/JakeFAU/tubescout/internal/policy/ratelimit"
	"github.com/JakeFAU/tubescout/internal/publisher/pubsub"
	"github.com/JakeFAU/tubescout/internal/resolver"
	"github.com/JakeFAU/tubescout/internal/storage/gcs"
	"github.com/JakeFAU/tubescout/internal/storage/local"
	"github.com/JakeFAU/tubescout/internal/storage/memory"
	"github.com/JakeFAU/tubescout/internal/storage/postgres"
	"github.com/JakeFAU/tubescout/internal/telemetry"
	"github.com/JakeFAU/tubescout/internal/youtube"
)

const serviceName = "tubescout"

// adminSeeder is implemented by both store drivers.
type adminSeeder interface {
	SeedAdmin(ctx context.Context, admin crawler.User) (bool, error)
}

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and handed to the commands that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     crawler.Store
	youtube   *youtube.Client
	resolver  *resolver.Resolver
	discovery *discovery.Service
	analyzer  *analyzer.Analyzer
	archiver  *export.Archiver
	sessions  *auth.Sessions
	publisher crawler.Publisher
	closers   []func() error
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
	clock      crawler.Clock
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient routes YouTube API calls through c.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock overrides the wall clock.
func WithClock(c crawler.Clock) Option {
	return func(o *options) { o.clock = c }
}

// GetConfig returns the configuration the app was built from.
func (a *App) GetConfig() config.Config { return a.cfg }

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger { return a.logger }

// GetStore exposes the channel, user, and activity store.
func (a *App) GetStore() crawler.Store { return a.store }

// GetResolver returns the channel reference resolver.
func (a *App) GetResolver() *resolver.Resolver { return a.resolver }

// GetDiscovery returns the crawl service.
func (a *App) GetDiscovery() *discovery.Service { return a.discovery }

// GetAnalyzer returns the single-channel analyzer.
func (a *App) GetAnalyzer() *analyzer.Analyzer { return a.analyzer }

// GetArchiver returns the export archiver; it may be disabled.
func (a *App) GetArchiver() *export.Archiver { return a.archiver }

// GetSessions returns the session token service.
func (a *App) GetSessions() *auth.Sessions { return a.sessions }

// GetPublisher returns the crawl event publisher, or nil when publishing is off.
func (a *App) GetPublisher() crawler.Publisher { return a.publisher }

// NewApp creates and initializes every service from cfg. It fails fast if a
// critical dependency cannot be reached.
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.logger}
	if a.logger == nil {
		a.logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	l := a.logger
	l.Info("Initializing application services...")

	clock := o.clock
	if clock == nil {
		clock = system.New()
	}

	metrics.Init()
	tp, err := telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	a.addCloser(func() error { return tp.Shutdown(context.Background()) })

	if err = a.initStore(ctx, clock); err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Burst:             cfg.YouTube.RequestBurst,
	})
	a.youtube, err = youtube.New(ctx, youtube.Config{
		APIKey:     cfg.YouTube.APIKey,
		BaseURL:    cfg.YouTube.BaseURL,
		HTTPClient: o.httpClient,
		Limiter:    limiter,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize youtube client: %w", err)
	}

	var resolverOpts []resolver.Option
	if cfg.Cache.RedisURL != "" {
		cache, client, cacheErr := redis.New(ctx, redis.Config{URL: cfg.Cache.RedisURL, TTL: cfg.Cache.HandleTTL}, l)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to initialize handle cache: %w", cacheErr)
		}
		a.addCloser(client.Close)
		resolverOpts = append(resolverOpts, resolver.WithCache(cache))
		l.Info("Using Redis handle cache")
	}
	a.resolver = resolver.New(a.youtube, l, resolverOpts...)

	detailFetcher := fetcher.New(a.youtube, l, fetcher.WithBatchPause(cfg.YouTube.BatchPause))
	a.analyzer = analyzer.New(a.resolver, detailFetcher, l)

	engine, err := discovery.NewEngine(discovery.EngineConfig{
		Searcher: a.youtube,
		Fetcher:  detailFetcher,
		Store:    a.store,
		Grid: discovery.Grid{
			Regions: cfg.YouTube.Regions,
			Terms:   cfg.YouTube.Keywords,
			Orders:  cfg.YouTube.SearchOrders,
		},
		PairPause: cfg.YouTube.PairPause,
		Clock:     clock,
		IDs:       uuid.New(),
		Logger:    l,
	})
	if err != nil {
		return nil, err
	}

	if cfg.PubSub.Enabled {
		l.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.PubSub.TopicName))
		pub, pubErr := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if pubErr != nil {
			return nil, fmt.Errorf("failed to initialize publisher: %w", pubErr)
		}
		a.addCloser(pub.Close)
		a.publisher = pub
	}
	a.discovery = discovery.NewService(engine, a.store, a.publisher, l)

	blobs, err := a.initArchive(ctx)
	if err != nil {
		return nil, err
	}
	a.archiver = export.NewArchiver(blobs, sha256.New(), clock, l)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret(32)
		if err != nil {
			return nil, err
		}
		l.Warn("auth.jwt_secret is not set; sessions will not survive a restart")
	}
	a.sessions, err = auth.NewSessions(secret, cfg.Auth.JWTIssuer, cfg.Auth.SessionTTL, clock)
	if err != nil {
		return nil, err
	}

	if err = a.seedAdmin(ctx); err != nil {
		return nil, err
	}

	l.Info("Application services initialized successfully.")
	return a, nil
}

func (a *App) initStore(ctx context.Context, clock crawler.Clock) error {
	switch a.cfg.DB.Driver {
	case config.DriverPostgres:
		a.logger.Info("Connecting to PostgreSQL...")
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             a.cfg.DB.DSN,
			MaxConns:        a.cfg.DB.MaxConns,
			MinConns:        a.cfg.DB.MinConns,
			MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
		}, postgres.WithClock(clock), postgres.WithLogger(a.logger))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.store = pg
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	case config.DriverMemory:
		a.logger.Info("Using in-memory store. Data is lost on exit.")
		a.store = memory.NewStore(clock)
	default:
		return fmt.Errorf("unknown database driver: %s", a.cfg.DB.Driver)
	}
	return nil
}

func (a *App) initArchive(ctx context.Context) (crawler.BlobStore, error) {
	switch a.cfg.Export.Archive {
	case config.ArchiveLocal:
		a.logger.Info("Archiving exports locally", zap.String("dir", a.cfg.Export.BaseDir))
		blobs, err := local.New(local.Config{BaseDir: a.cfg.Export.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local archive: %w", err)
		}
		return blobs, nil
	case config.ArchiveGCS:
		a.logger.Info("Archiving exports to GCS", zap.String("bucket", a.cfg.Export.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.addCloser(client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Export.GCSBucket, Prefix: a.cfg.Export.Prefix})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gcs archive: %w", err)
		}
		return blobs, nil
	default:
		return nil, nil
	}
}

// seedAdmin creates the first admin account on an empty store. Without a
// configured password a random one is generated and logged once.
func (a *App) seedAdmin(ctx context.Context) error {
	seeder, ok := a.store.(adminSeeder)
	if !ok {
		return nil
	}
	password := a.cfg.Auth.AdminPassword
	generated := password == ""
	if generated {
		var err error
		if password, err = randomSecret(12); err != nil {
			return err
		}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := seeder.SeedAdmin(ctx, crawler.User{
		Username:     a.cfg.Auth.AdminUsername,
		Email:        a.cfg.Auth.AdminEmail,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}
	if created && generated {
		a.logger.Warn("generated admin password; change it after first login",
			zap.String("username", a.cfg.Auth.AdminUsername),
			zap.String("password", password))
	}
	return nil
}

func (a *App) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close shuts down every service in reverse order of construction.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.logger.Info("Shutting down application services...")
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.store != nil {
		a.store.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Error closing services", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
