package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"pqmeta/internal/config"
	apierrors "pqmeta/internal/errors"
	"pqmeta/internal/infrastructure"
	customMiddleware "pqmeta/internal/middleware"
	"pqmeta/internal/operations"
	"pqmeta/internal/services"
	handlers "pqmeta/internal/transport/http"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *apierrors.ErrorHandler
	JobStore      *operations.MemoryJobStore
	Orchestrator  *operations.Orchestrator
	ReportService *services.ReportService
	HealthService *services.HealthService

	startTime time.Time
	cancel    context.CancelFunc
}

// NewApplication loads the configuration at configPath, initializes the
// process-wide logger and builds the application
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires every component from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", cfg.Server.Port))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
		startTime:     time.Now(),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices builds the job store, orchestrator and services
func (a *Application) initializeServices() error {
	meter := infrastructure.GlobalMeter()
	if a.OTelProviders.Meter != nil {
		meter = a.OTelProviders.Meter
	}

	if err := infrastructure.RegisterRuntimeMetrics(meter, a.startTime); err != nil {
		a.Logger.Warn("runtime metrics unavailable", slog.String("error", err.Error()))
	}

	extractionMetrics, err := infrastructure.CreateExtractionMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to create extraction metrics: %w", err)
	}

	a.JobStore = operations.NewMemoryJobStore(a.Config.Upload.ReportTTL, a.Config.Upload.MaxReports)

	opts := []operations.Option{
		operations.WithJobStore(a.JobStore),
		operations.WithMetrics(extractionMetrics),
	}
	if a.OTelProviders.Tracer != nil {
		opts = append(opts, operations.WithTracer(a.OTelProviders.Tracer))
	}
	a.Orchestrator = operations.NewOrchestrator(operations.ConfigFrom(a.Config.Extraction), a.Logger, opts...)

	a.ReportService = services.NewReportService(a.Orchestrator, a.JobStore, "/api/reports", a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, a.ReportService, a.Orchestrator.Config().Workers, a.Logger)
	return nil
}

// setupRouter configures the middleware chain and routes.
// Order: RequestID → RealIP → OTel → Logger → Recovery → SecurityHeaders → CORS → RateLimit
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Scrapes stay outside the instrumented group
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(a.OTelProviders.MetricsHandler()))

	var httpMetrics *infrastructure.HTTPMetrics
	if a.OTelProviders.Meter != nil {
		m, err := infrastructure.CreateHTTPMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create http metrics: %w", err)
		}
		httpMetrics = m
	}
	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, httpMetrics, a.Logger)
	if err != nil {
		return err
	}

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
	return nil
}

// setupAPIRoutes registers the report, health and legacy endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewRequestValidator(a.Logger, a.ErrorHandler)
	reportHandler := handlers.NewReportHandler(a.ReportService, a.Config.Upload, validator, a.ErrorHandler, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		// Uploads are extracted inside the request, so they get the write timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
			r.Mount("/reports", reportHandler.Routes())
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
		reportHandler.RegisterLegacy(r)
	})
}

// getCORSConfig builds the CORS settings from the security section.
// Methods and headers use the middleware defaults, which already expose
// Content-Disposition for report downloads.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		Logger:         a.Logger,
	}
	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the report cleanup loop and the HTTP server. Server errors
// other than a normal close are sent on the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.ReportService.StartCleanup(ctx, cleanupInterval(a.Config.Upload.ReportTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.cancel != nil {
		a.cancel()
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or the server fails
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := a.Start(ctx)
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			_ = a.Stop(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	}
	return a.Stop(context.Background())
}

// cleanupInterval sweeps expired reports a few times per TTL
func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
