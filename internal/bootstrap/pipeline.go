package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/config"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/adapters/authapi"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/adapters/navigation"
	redisadapter "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/adapters/redis"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/authclient"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/service"
)

// PipelineDeps groups dependencies for BuildPipeline.
type PipelineDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger

	// Redis backs session persistence when Config.Session.Persist is set. When nil and
	// persistence is on, a client is dialed from Config.Redis.
	Redis redis.UniversalClient

	// Navigator receives login redirects. Defaults to a navigation.Logger.
	Navigator ports.Navigator

	// Metrics overrides the sink built from Config.Observability.
	Metrics statsd.Sink

	// Base is the transport underneath the decorator. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// Pipeline is the wired authenticated request pipeline plus the services around it.
type Pipeline struct {
	Session     *service.SessionState
	Auth        *service.AuthService
	API         *authapi.Client
	Decorator   *authclient.RequestAuthDecorator
	Coordinator *authclient.RefreshCoordinator
	Transport   *authclient.Transport
	Client      *http.Client
	Metrics     statsd.Sink

	logger    *slog.Logger
	persister *service.SnapshotPersister
	closers   []func() error
}

// BuildPipeline wires decorator, auth endpoints, session state, refresh coordinator
// and transport. With persistence enabled the stored credentials and identity are
// restored before it returns.
func BuildPipeline(ctx context.Context, deps PipelineDeps) (*Pipeline, error) {
	if deps.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{logger: logger}
	ok := false
	defer func() {
		if !ok {
			p.runClosers()
		}
	}()

	p.Metrics = deps.Metrics
	if p.Metrics == nil {
		sink, err := newMetricsSink(cfg.Observability.Metrics, logger)
		if err != nil {
			return nil, err
		}
		if sink != nil {
			p.Metrics = sink
			p.closers = append(p.closers, sink.Close)
		}
	}

	stores, err := p.sessionStores(ctx, deps)
	if err != nil {
		return nil, err
	}

	jar, err := newJar(ctx, cfg.API.Origin, stores.cookies, logger)
	if err != nil {
		return nil, err
	}
	p.Decorator, err = authclient.NewRequestAuthDecorator(cfg.API.Origin, jar, deps.Base)
	if err != nil {
		return nil, fmt.Errorf("build request decorator: %w", err)
	}

	p.API, err = authapi.New(authapi.Options{
		BaseURL:     cfg.API.Origin,
		Transport:   p.Decorator,
		Timeout:     cfg.API.RequestTimeout,
		RefreshPath: cfg.API.RefreshPath,
		LogoutPath:  cfg.API.LogoutPath,
		LoginPath:   cfg.API.LoginPath,
		MePath:      cfg.API.MePath,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth api client: %w", err)
	}

	p.Session = service.NewSessionState(logger)

	navigator := deps.Navigator
	if navigator == nil {
		navigator = navigation.NewLogger(cfg.API.LoginRoute, logger)
	}

	p.Coordinator, err = authclient.NewRefreshCoordinator(authclient.CoordinatorOptions{
		Refresher:              p.API,
		Terminator:             p.API,
		Navigator:              navigator,
		Session:                p.Session,
		Logger:                 logger,
		Metrics:                p.Metrics,
		Timeout:                cfg.Pipeline.RefreshTimeout,
		Cooldown:               cfg.Pipeline.RefreshCooldown,
		MaxConsecutiveFailures: cfg.Pipeline.MaxConsecutiveFailures,
	})
	if err != nil {
		return nil, fmt.Errorf("build refresh coordinator: %w", err)
	}

	p.Transport, err = authclient.NewTransport(authclient.TransportOptions{
		Decorator:   p.Decorator,
		Coordinator: p.Coordinator,
		Guard:       authclient.NewPublicRouteGuard(cfg.Pipeline.PublicSafePrefixes),
		Session:     p.Session,
		Logger:      logger,
		Metrics:     p.Metrics,
		BypassPaths: p.API.Paths(),
	})
	if err != nil {
		return nil, fmt.Errorf("build auth transport: %w", err)
	}
	p.API.UseProtectedTransport(p.Transport)
	p.Client = p.Transport.Client(cfg.API.RequestTimeout)

	p.Auth, err = service.NewAuthService(service.AuthServiceOptions{
		Authenticator: p.API,
		Terminator:    p.API,
		Snapshots:     stores.snapshots,
		Session:       p.Session,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}

	if stores.snapshots != nil {
		if _, err := p.Auth.Restore(ctx); err != nil {
			logger.WarnContext(ctx, "session restore failed", "error", err)
		}
		p.persister = service.StartSnapshotPersister(p.Session, stores.snapshots, logger)
	}

	ok = true
	return p, nil
}

type sessionStores struct {
	snapshots ports.SnapshotStore
	cookies   ports.CookieStore
}

func (p *Pipeline) sessionStores(ctx context.Context, deps PipelineDeps) (sessionStores, error) {
	cfg := deps.Config
	if !cfg.Session.Persist {
		return sessionStores{}, nil
	}

	client := deps.Redis
	if client == nil {
		dialed, err := ConnectRedis(ctx, cfg.Redis, p.logger)
		if err != nil {
			return sessionStores{}, fmt.Errorf("connect session store: %w", err)
		}
		client = dialed
		p.closers = append(p.closers, dialed.Close)
	}

	return sessionStores{
		snapshots: redisadapter.NewSnapshotStore(client, redisadapter.SnapshotStoreOptions{
			Key: cfg.Session.SnapshotKey(),
			TTL: cfg.Session.TTL,
		}),
		cookies: redisadapter.NewCookieStore(client, cfg.Session.CredentialsKey(), cfg.Session.TTL),
	}, nil
}

// newJar returns a persistent jar when a cookie store is configured and nil
// otherwise, letting the decorator create its in-memory jar.
//
//nolint:ireturn // the decorator takes any http.CookieJar.
func newJar(ctx context.Context, origin string, store ports.CookieStore, logger *slog.Logger) (http.CookieJar, error) {
	if store == nil {
		return nil, nil
	}
	jar, err := authclient.NewPersistentJar(ctx, origin, store, logger)
	if err != nil {
		return nil, fmt.Errorf("build credential jar: %w", err)
	}
	return jar, nil
}

func newMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise statsd client: %w", err)
	}
	return client, nil
}

// Close flushes the session snapshot and releases connections.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	if p.persister != nil {
		if err := p.persister.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush session snapshot: %w", err))
		}
	}
	if err := p.runClosers(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) runClosers() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
