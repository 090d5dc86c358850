package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/feedrank/feedrank/internal/config"
	"github.com/feedrank/feedrank/internal/db"
	dbMemory "github.com/feedrank/feedrank/internal/db/memory"
	dbRedis "github.com/feedrank/feedrank/internal/db/redis"
	logpkg "github.com/feedrank/feedrank/internal/logger"
	"github.com/feedrank/feedrank/internal/metrics"
	"github.com/feedrank/feedrank/internal/notify"
	"github.com/feedrank/feedrank/internal/provider"
	contentrepo "github.com/feedrank/feedrank/internal/repository/content"
	"github.com/feedrank/feedrank/internal/repository/pagecache"
	subscriberrepo "github.com/feedrank/feedrank/internal/repository/subscriber"
	"github.com/feedrank/feedrank/internal/scheduler"
	chiTransport "github.com/feedrank/feedrank/internal/transport/chi"
	searchuc "github.com/feedrank/feedrank/internal/usecase/search"
	"github.com/feedrank/feedrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting feedrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("db_path", cfg.Database.Path),
		zap.Int("providers", len(cfg.Providers)),
	)

	// Create the cache KV store based on driver
	var kvStore db.Store
	switch cfg.Cache.Driver {
	case "redis":
		kvStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
	case "memory":
		kvStore = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Cache.Driver))
	}
	defer kvStore.Close()

	ctx := context.Background()
	if err := kvStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}

	// Open the SQLite content store
	sqlDB, err := contentrepo.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open content database", zap.Error(err))
	}
	defer func() { _ = sqlDB.Close() }()

	if err := subscriberrepo.InitSchema(sqlDB); err != nil {
		logger.Fatal("Failed to init subscriber schema", zap.Error(err))
	}

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	contentRepo := contentrepo.New(sqlDB)
	subscriberRepo := subscriberrepo.New(sqlDB)

	pageCache := pagecache.New(
		kvStore,
		cfg.Cache.KeyPrefix+"pages:",
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.QueryCacheTotal,
		logger,
	)

	// Notification channels — explicit registered list
	var channels []notify.Channel
	if cfg.Notify.SMTPAddr != "" {
		channels = append(channels, notify.NewEmailChannel(
			cfg.Notify.SMTPAddr, cfg.Notify.SMTPUser, cfg.Notify.SMTPPassword, cfg.Notify.FromEmail,
		))
	}
	if cfg.Notify.SMSEnabled {
		channels = append(channels, notify.NewSMSChannel(logger))
	}
	notifier := notify.NewManager(logger, subscriberRepo, channels)

	// Feed providers — explicit registered list resolved at startup
	providers := make([]provider.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		timeout := time.Duration(pc.TimeoutSec) * time.Second
		switch pc.Kind {
		case "json":
			providers = append(providers, provider.NewJSONProvider(pc.Name, pc.URL, timeout))
		case "xml":
			providers = append(providers, provider.NewXMLProvider(pc.Name, pc.URL, timeout))
		}
	}
	aggregator := provider.NewAggregator(providers, logger, metrics.ProviderFailuresTotal)

	pipeline := searchuc.New(contentRepo, pageCache, aggregator, notifier, logger).
		WithSyncedCounter(metrics.SyncedContentsTotal)

	// Periodic sync
	if cfg.Sync.IntervalHours > 0 {
		sched := scheduler.New(pipeline, logger, cfg.Sync.IntervalHours, cfg.Sync.OnStart)
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	// Create chi server
	server := chiTransport.NewServer(pipeline, logger, kvStore, sqlPinger{sqlDB})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// sqlPinger adapts *sql.DB to the transport's Pinger.
type sqlPinger struct {
	db interface {
		PingContext(ctx context.Context) error
	}
}

func (p sqlPinger) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("content database ping: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]any{
						"success": false,
						"error":   "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
