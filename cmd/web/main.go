package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"superstore-dashboard/internal/config"
	"superstore-dashboard/internal/middleware"
	"superstore-dashboard/internal/observability"
	"superstore-dashboard/internal/server"
	"superstore-dashboard/internal/services"
	"superstore-dashboard/internal/ui/templates"
)

const (
	renderTimeout    = 10 * time.Second
	pageCacheControl = "no-cache"
)

// handleDashboard renders the full page for the current dataset domain.
func handleDashboard(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		dom, err := analytics.Domain()
		if err != nil {
			http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", pageCacheControl)
		if err := templates.Dashboard(dom).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newAnalytics(cfg *config.Config, logger *slog.Logger) *services.Analytics {
	var cache *services.SnapshotCache
	if cfg.Data.CacheEnabled {
		cache = services.NewSnapshotCache(cfg.Data.CacheDir)
	}

	return services.NewAnalytics(services.AnalyticsOptions{
		Source: cfg.Data.CSVFile,
		Loader: services.LoaderOptions{
			Encoding:    cfg.Data.Encoding,
			DateLayouts: cfg.Data.DateLayouts,
		},
		Cache:  cache,
		Logger: logger,
	})
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger, rateLimiter *middleware.RateLimiter) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard(analytics),
	}

	srv := server.NewServer(analytics, logger, cfg.Dashboard, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Data.CSVFile,
		"encoding", cfg.Data.Encoding,
		"cache", cfg.Data.CacheEnabled,
		"watch", cfg.Data.WatchSource,
	)

	analytics := newAnalytics(cfg, logger)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	start := time.Now()
	err = analytics.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("failed to load dataset", "source", cfg.Data.CSVFile, "error", err)
		os.Exit(1)
	}
	logger.Info("dataset ready", "duration", time.Since(start))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rateLimiter := middleware.NewRateLimiter(ctx, cfg.Security)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server.ShutdownTimeout)

	if cfg.Data.WatchSource {
		watcher, err := services.NewSourceWatcher(cfg.Data.CSVFile, analytics, logger, cfg.Data.LoadTimeout)
		if err != nil {
			logger.Warn("source watching disabled", "error", err)
		} else {
			watcher.Start()
			gracefulServer.RegisterShutdownHook(watcher.Close)
		}
	}

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
