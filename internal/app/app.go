package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datacheck/internal/config"
	apierrors "datacheck/internal/errors"
	"datacheck/internal/infrastructure"
	customMiddleware "datacheck/internal/middleware"
	"datacheck/internal/operations"
	"datacheck/internal/services"
	handlers "datacheck/internal/transport/http"
	"datacheck/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config            *config.Config
	Paths             *config.Paths
	Router            *chi.Mux
	Server            *http.Server
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders
	Manager           *operations.Manager
	ValidationService *services.ValidationService
	HealthService     *services.HealthService
	CatalogService    *services.CatalogService
	ErrorHandler      *apierrors.ErrorHandler

	metrics  *infrastructure.BusinessMetrics
	mu       sync.Mutex
	listener net.Listener
}

// NewApplication wires the service. A nil cfg is loaded from the usual
// config file and DATACHECK_* variables; a nil logger is built from cfg.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	if logger == nil {
		l, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(
		infrastructure.OTelConfigFromTelemetry(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the pipeline and the services over it
func (a *Application) initializeServices() error {
	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to initialize operation tracer: %w", err)
	}
	a.metrics = tracer.Metrics()

	opsConfig := operations.ConfigFromPipeline(a.Config.Pipeline)
	registry, err := operations.NewPipelineRegistry(operations.StepDeps{
		Logger:          a.Logger,
		Paths:           a.Paths,
		Pipeline:        a.Config.Pipeline,
		Metrics:         a.metrics,
		MaxChartWorkers: opsConfig.MaxChartWorkers,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	a.Manager = operations.NewManager(registry, opsConfig, a.Logger)
	a.Manager.SetTracer(tracer)

	a.ValidationService = services.NewValidationService(a.Manager, nil, a.Config.Pipeline, a.Logger)
	a.HealthService = services.NewHealthService(a.Paths, a.ValidationService, a.Logger)
	a.CatalogService = services.NewCatalogService(a.Paths, a.Logger)

	a.Logger.Info("Services initialized",
		slog.Any("steps", registry.ListIDs()),
		slog.String("reports_dir", a.Paths.ReportsDir))
	return nil
}

// setupRouter orders middleware as RequestID, RealIP, then OTel, logging,
// recovery, security headers, CORS and rate limiting for the API group
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Outside the group so scrapes skip the request middleware
	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(
		a.OTelProviders.PrometheusHTTP, a.Config.Telemetry.EnableMetrics))

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	validationHandler := handlers.NewValidationHandler(
		a.ValidationService, a.ErrorHandler, a.Config.Server.MaxUploadBytes, a.Logger)
	catalogHandler := handlers.NewCatalogHandler(a.CatalogService, a.ErrorHandler, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get(config.HealthEndpoint, healthHandler.HealthCheck)
		r.Get(config.VersionEndpoint, healthHandler.Version)
		r.Mount(config.APIBasePath+"/catalog", catalogHandler.Routes())
		r.Mount(config.APIBasePath, validationHandler.Routes())
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Addr returns the bound address once Start has run
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	for _, run := range a.ValidationService.ActiveRuns() {
		if err := a.ValidationService.CancelRun(run.ID); err != nil {
			a.Logger.WarnContext(ctx, "Failed to cancel run",
				slog.String("operation_id", run.ID),
				slog.String("error", err.Error()))
		}
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until interrupted or the server fails
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
