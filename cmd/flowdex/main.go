package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flowhub-cloud/flowdex/internal/config"
	"github.com/flowhub-cloud/flowdex/internal/db/valkey"
	logpkg "github.com/flowhub-cloud/flowdex/internal/logger"
	"github.com/flowhub-cloud/flowdex/internal/metrics"
	"github.com/flowhub-cloud/flowdex/internal/repository/cleaned"
	"github.com/flowhub-cloud/flowdex/internal/repository/corpus"
	usagerepo "github.com/flowhub-cloud/flowdex/internal/repository/usage"
	chiTransport "github.com/flowhub-cloud/flowdex/internal/transport/chi"
	openaiGen "github.com/flowhub-cloud/flowdex/internal/transport/openai"
	assistuc "github.com/flowhub-cloud/flowdex/internal/usecase/assist"
	indexuc "github.com/flowhub-cloud/flowdex/internal/usecase/index"
	queryuc "github.com/flowhub-cloud/flowdex/internal/usecase/query"
	"github.com/flowhub-cloud/flowdex/internal/usecase/retrieval"
	"github.com/flowhub-cloud/flowdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting flowdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus_dir", cfg.Corpus.Dir),
	)

	metrics.RegisterPipelineMetrics()

	corpusStore, err := corpus.New(cfg.Corpus.Dir)
	if err != nil {
		logger.Fatal("Failed to open corpus store", zap.Error(err))
	}
	cleanedStore := cleaned.New(cfg.Corpus.CleanedDir)

	// Usage tracking is optional: no database configured means no counters.
	// Pass nil interface (not typed nil pointer!) when disabled.
	var tracker chiTransport.UsageTracker
	if len(cfg.Database.Addrs) > 0 {
		client, err := valkey.NewClient(valkey.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create usage store client", zap.Error(err))
		}
		defer client.Close()

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := client.WaitForReady(context.Background(), readiness); err != nil {
			logger.Fatal("Usage store not ready", zap.Error(err))
		}
		ttl := time.Duration(cfg.Database.CounterTTLDays) * 24 * time.Hour
		tracker = usagerepo.New(client, ttl)
		logger.Info("Usage tracking enabled", zap.Strings("addrs", cfg.Database.Addrs))
	}

	builder := indexuc.NewBuilder(corpusStore, cfg.Corpus.MaxDescription, logger)
	engine := queryuc.NewEngine(corpusStore, logger)

	// Warm the cache; a missing artifact is fine before the first rebuild.
	if err := engine.Reload(context.Background()); err != nil {
		logger.Fatal("Failed to load index cache", zap.Error(err))
	}

	// Assist is optional: without an API key the endpoint reports 503.
	var assistSvc *assistuc.Service
	if cfg.Generation.APIKey != "" {
		selector := retrieval.NewSelector(
			cleanedStore,
			rand.New(rand.NewSource(time.Now().UnixNano())),
			logger,
		)
		generator := openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:  cfg.Generation.APIKey,
			BaseURL: cfg.Generation.BaseURL,
			Model:   cfg.Generation.Model,
			Logger:  logger,
		})
		assistSvc = assistuc.New(selector, generator, cfg.Generation.TopK, logger)
		logger.Info("Assist enabled", zap.String("model", cfg.Generation.Model))
	}

	server := chiTransport.NewServer(
		engine, corpusStore, builder, assistSvc, tracker,
		cfg.Corpus.DefaultPageSize, cfg.Corpus.MaxPageSize, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	server.Mount(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	addr := ":" + strconv.Itoa(cfg.HTTP.Port)
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
