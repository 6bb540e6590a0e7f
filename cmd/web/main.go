package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	sourceLoadTime = 60 * time.Second
	cacheMaxAge    = "no-cache"
)

// dashboardHandler renders the page shell. The initial range comes from
// ?start=&end= and defaults to the full extent of the source.
func dashboardHandler(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()
		requestID := observability.GetRequestID(ctx)

		bounds, err := analytics.Bounds(ctx)
		if err != nil {
			errors.WriteError(w, logger, err, requestID)
			return
		}
		q := r.URL.Query()
		rng, err := services.ParseDateRange(q.Get("start"), q.Get("end"), bounds)
		if err != nil {
			errors.WriteError(w, logger, err, requestID)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(rng, bounds, templates.ParseView(q.Get("view"))).Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err, "request_id", requestID)
		}
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, logger),
	}
	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
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
		"source", cfg.Source.Location,
		"baseline_cost", cfg.Business.BaselineCost.String(),
		"addr", cfg.Address(),
	)

	loader := services.NewLoader(services.LoaderOptions{
		TTL:          cfg.Source.CacheTTL,
		FetchTimeout: cfg.Source.FetchTimeout,
		SnapshotDir:  cfg.Source.CacheDir,
		Logger:       logger,
	})
	analytics := services.NewAnalytics(loader, cfg.Source.Location, cfg.Business.BaselineCost).WithLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), sourceLoadTime)
	start := time.Now()
	records, err := analytics.Records(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load sales data", "source", cfg.Source.Location, "error", err)
		os.Exit(1)
	}
	logger.Info("sales data loaded", "records", len(records), "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("source-cache", func(ctx context.Context) error {
		logger.Info("dropping cached sources", "cached", loader.CachedSources())
		loader.Flush()
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
