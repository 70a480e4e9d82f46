package app

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/vecindario/discovery/internal/config"
	"github.com/vecindario/discovery/internal/dispatch"
	"github.com/vecindario/discovery/internal/filterstore"
	"github.com/vecindario/discovery/internal/httpapi"
	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/ratelimit"
	"github.com/vecindario/discovery/internal/session"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Dispatch   *dispatch.Client
	Registry   *session.Registry
	HTTPServer *httpapi.Server

	redisClient *redis.Client
}

// New creates and initializes a new App instance
func New(cfg *config.Config) *App {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))

	limiter := ratelimit.New(cfg.Upstream.RateLimitDur)
	app.Dispatch = dispatch.New(dispatch.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		BearerToken: cfg.Upstream.BearerToken,
		Timeout:     cfg.Upstream.Timeout,
	}, limiter, app.Logger)

	stores := app.initStoreFactory()
	app.Registry = session.NewRegistry(stores, app.Dispatch, cfg.Discovery.SessionTTL, cfg.Discovery.Debounce, app.Logger)
	app.HTTPServer = httpapi.New(app.Registry, app.Logger)

	return app
}

// initStoreFactory picks the filter persistence backend. Redis falls
// back to memory when the connection cannot be established, the same
// degradation the rest of the subsystem applies to its failures.
func (a *App) initStoreFactory() session.StoreFactory {
	cfg := a.Config.Store

	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory store", logging.WithField("error", err.Error()))
			return func(namespace string) filterstore.Store {
				return filterstore.NewMemory()
			}
		}
		a.redisClient = client
		a.Logger.Info("Using Redis filter store", logging.WithField("addr", cfg.RedisAddr))
		return func(namespace string) filterstore.Store {
			return filterstore.NewRedisWithClient(client, cfg.RedisPrefix, namespace, a.Logger)
		}

	case "memory":
		a.Logger.Info("Using in-memory filter store")
		return func(namespace string) filterstore.Store {
			return filterstore.NewMemory()
		}

	default:
		a.Logger.Info("Using file filter store", logging.WithField("dir", cfg.FileDir))
		return func(namespace string) filterstore.Store {
			return filterstore.NewFile(cfg.FileDir, namespace, a.Logger)
		}
	}
}

// Run starts the HTTP server and blocks until it stops.
func (a *App) Run() error {
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully stops the application
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
			firstErr = err
		}
	}
	if a.Registry != nil {
		a.Registry.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
