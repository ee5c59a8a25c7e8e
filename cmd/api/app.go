package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/legalqa/assistant/internal/api/handlers"
	"github.com/legalqa/assistant/internal/api/middleware"
	"github.com/legalqa/assistant/internal/api/response"
	"github.com/legalqa/assistant/internal/bootstrap"
	"github.com/legalqa/assistant/internal/config"
	"github.com/legalqa/assistant/internal/observability"
)

const meterName = "legal-qa"

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	components     *bootstrap.Components
	server         *http.Server
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// appMetrics groups the metric recorders; every field is nil when metrics are disabled.
// handler is set only for the prometheus exporter and is served at /metrics.
type appMetrics struct {
	qa      observability.QAMetrics
	cache   observability.CacheMetrics
	api     observability.APIMetrics
	handler http.Handler
}

// setupMetrics creates the meter provider and recorders. When NewMeterProvider returns nil
// (disabled exporter) metrics stay disabled.
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, appMetrics, error) {
	mp, handler, err := observability.NewMeterProvider(cfg)
	if err != nil {
		return nil, appMetrics{}, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, appMetrics{}, nil
	}

	meter := mp.Meter(meterName)

	m := appMetrics{handler: handler}

	if m.qa, err = observability.NewQAMetrics(meter); err == nil {
		if m.cache, err = observability.NewCacheMetrics(meter); err == nil {
			m.api, err = observability.NewAPIMetrics(meter)
		}
	}

	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, appMetrics{}, fmt.Errorf("create metrics: %w", err)
	}

	return mp, m, nil
}

// NewApp builds and wires all components. It does not start the HTTP server; call Run.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	var (
		err           error
		meterProvider *sdkmetric.MeterProvider
		metrics       appMetrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, metrics, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			shutdownAfterError(meterProvider, nil, "tracer provider")

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Installed unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		Logger:       slog.Default(),
		QAMetrics:    metrics.qa,
		CacheMetrics: metrics.cache,
	})
	if err != nil {
		shutdownAfterError(meterProvider, tracerProvider, "component setup")

		return nil, err
	}

	server := newHTTPServer(cfg, components, metrics, meterProvider, tracerProvider)

	return &App{
		cfg:            cfg,
		components:     components,
		server:         server,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

func shutdownAfterError(mp *sdkmetric.MeterProvider, tp *sdktrace.TracerProvider, stage string) {
	if err := shutdownObservability(context.Background(), tp, mp); err != nil {
		slog.Error("shutdown observability after "+stage+" error", "error", err)
	}
}

// newRouter registers the routes. /api/faqs requires the API key; the rest is public.
// metricsHandler, when non-nil, is mounted at /metrics.
func newRouter(
	cfg *config.Config,
	c *bootstrap.Components,
	apiMetrics observability.APIMetrics,
	metricsHandler http.Handler,
) chi.Router {
	health := handlers.NewHealthHandler()
	ask := handlers.NewAskHandler(c.Pipeline, c.QueryLogs, slog.Default())
	queryLogs := handlers.NewQueryLogsHandler(c.QueryLogs)
	faqs := handlers.NewFAQsHandler(c.FAQs, slog.Default())

	r := chi.NewRouter()
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.Metrics(apiMetrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.MaxBody(cfg.MaxRequestBodyBytes, apiMetrics))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondMethodNotAllowed(w, "method not allowed")
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Check)
		r.Post("/ask", ask.Ask)
		r.Get("/stats", queryLogs.Stats)
		r.Get("/logs", queryLogs.List)

		r.Route("/faqs", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.APIKey))
			r.Get("/", faqs.List)
			r.Post("/", faqs.Create)
			r.Post("/reindex", faqs.Reindex)
			r.Get("/{id}", faqs.Get)
			r.Delete("/{id}", faqs.Delete)
		})
	})

	return r
}

// newHTTPServer builds the HTTP server.
// Handler chain: RequestID -> otelhttp(Logging(router)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	c *bootstrap.Components,
	metrics appMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/api/health" && r.URL.Path != "/api/health/" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	inner := middleware.Logging(slog.Default())(newRouter(cfg, c, metrics.api, metrics.handler))
	handler := otelhttp.NewHandler(inner, "legal-qa-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 60 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: max(writeTimeout, cfg.CompletionTimeout+15*time.Second),
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server, then releases the index and database, then flushes telemetry.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	serverErr := a.server.Shutdown(ctx)
	if serverErr != nil && errors.Is(serverErr, http.ErrServerClosed) {
		serverErr = nil
	}

	if closeErr := a.components.Close(); closeErr != nil {
		if serverErr != nil {
			slog.Error("close components", "error", closeErr)
		} else {
			return closeErr
		}
	}

	if serverErr != nil {
		return fmt.Errorf("server shutdown: %w", serverErr)
	}

	return nil
}
