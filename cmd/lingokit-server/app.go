package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"lingokit/adapters/jsonfile"
	mem "lingokit/adapters/memory"
	redisAdapter "lingokit/adapters/redis"
	sqlxAdapter "lingokit/adapters/sqlx"
	"lingokit/analytics"
	"lingokit/api/httpapi"
	"lingokit/config"
	"lingokit/engine"
	"lingokit/integrations/webhook"
	"lingokit/leaderboard"
	"lingokit/realtime"

	// SQL drivers selected at runtime by the storage adapter config.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// App aggregates the assembled server components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *realtime.Hub
	Board     leaderboard.Board
	Analytics *analytics.Aggregator
	Service   *engine.ProgressService
	Handler   http.Handler
	Server    *http.Server
}

func provideConfig(_ context.Context) (*config.Config, error) {
	if path := os.Getenv("LINGOKIT_CONFIG"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideBoard() leaderboard.Board {
	return leaderboard.NewSkipList()
}

func provideAnalytics() *analytics.Aggregator {
	return analytics.NewAggregator()
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	return setupStorage(ctx, cfg)
}

func provideService(
	cfg *config.Config,
	storage engine.Storage,
	hub *realtime.Hub,
	board leaderboard.Board,
	agg *analytics.Aggregator,
	logger *slog.Logger,
) (*engine.ProgressService, error) {
	mode := engine.DispatchAsync
	if cfg.Events.Dispatch == "sync" {
		mode = engine.DispatchSync
	}
	bus := engine.NewEventBus(mode, logger)
	svc, err := engine.NewProgressService(storage, bus, cfg.Rewards.ToRewards(), logger)
	if err != nil {
		return nil, err
	}

	hub.AttachBus(bus)
	leaderboard.Follow(board, bus)
	analytics.AttachBus(agg, bus)
	if len(cfg.Integrations.WebhookURLs) > 0 {
		webhook.New(cfg.Integrations.WebhookURLs).AttachBus(bus)
	}
	return svc, nil
}

func provideHandler(svc *engine.ProgressService, hub *realtime.Hub, board leaderboard.Board, agg *analytics.Aggregator, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, httpapi.Deps{Hub: hub, Board: board, Analytics: agg}, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
