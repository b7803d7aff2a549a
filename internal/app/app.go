package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"remcli/internal/config"
	apierrors "remcli/internal/errors"
	"remcli/internal/files"
	"remcli/internal/infrastructure"
	custommw "remcli/internal/middleware"
	"remcli/internal/services"
	handlers "remcli/internal/transport/http"
	ws "remcli/internal/websocket"
	"remcli/pkg/contracts"
)

// AppName is the human readable service name used in startup logs.
const AppName = "REM Report Service"

// Application wires configuration, services, transport and the
// observability stack into one runnable server.
type Application struct {
	Config            *config.Config
	Paths             *config.Paths
	Router            *chi.Mux
	Server            *http.Server
	WebSocketHub      *ws.Hub
	ExtractionService *services.ExtractionService
	DataService       *services.DataService
	HealthService     *services.HealthService
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders
	Metrics           *infrastructure.BusinessMetrics
	RuntimeMetrics    *infrastructure.RuntimeMetrics
}

// NewApplication builds the full dependency graph from an already
// loaded configuration. Nothing listens until Run.
func NewApplication(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("service starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	// Resolve and create the data tree before anything touches it
	paths, err := config.PathsFrom(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}

	// One BusinessMetrics instance is shared by the hub, the services and
	// the middleware so no instrument is registered twice.
	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		logger.Warn("business metrics disabled", slog.String("error", err.Error()))
		metrics = nil
	}

	runtimeMetrics, err := infrastructure.RegisterRuntimeMetrics(otelProviders.Meter, time.Now())
	if err != nil {
		logger.Warn("runtime metrics disabled", slog.String("error", err.Error()))
		runtimeMetrics = nil
	}

	app := &Application{
		Config:         cfg,
		Paths:          paths,
		Logger:         logger,
		OTelProviders:  otelProviders,
		Metrics:        metrics,
		RuntimeMetrics: runtimeMetrics,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the hub and the services in dependency
// order.
func (a *Application) initializeServices() {
	// The extraction service broadcasts through the hub, so it comes up first
	hub := ws.NewHub(a.Config.WebSocket, a.Logger, a.Metrics)
	hub.Start()
	a.WebSocketHub = hub

	a.ExtractionService = services.NewExtractionService(a.Config, a.Paths, hub, a.Logger, a.Metrics)
	a.DataService = services.NewDataService(a.Paths, a.Logger)
	a.HealthService = services.NewHealthService(
		contracts.BuildInfo(),
		a.Paths,
		hub,
		a.ExtractionService,
		a.Logger,
	)
}

// setupRouter assembles the middleware chain and mounts the routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal outer middleware that never wraps the ResponseWriter, so the
	// WebSocket upgrade still sees an http.Hijacker.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	// WebSocket route with tracing only. MUST be registered after the
	// minimal middleware but before the full group.
	r.With(custommw.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Everything else runs under the full middleware stack
	r.Group(func(r chi.Router) {
		otelMiddleware := custommw.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		r.Use(otelMiddleware.Handler)
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)
		r.Use(custommw.CORS(a.getCORSConfig()))
		r.Use(custommw.Compress(5))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint, outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts everything under /api.
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
		validation := custommw.NewValidationMiddleware(a.Logger, errorHandler)

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		// Read endpoints under the standard timeout
		r.Group(func(r chi.Router) {
			r.Use(custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/stats", healthHandler.Stats)
			r.Get("/version", healthHandler.Version)

			dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/data", dataHandler.Routes())
		})

		// Extraction runs are asynchronous: POST /run only validates and
		// accepts, so the standard timeout covers it. Progress is pushed
		// over the WebSocket and polled via /extraction/status.
		r.Group(func(r chi.Router) {
			r.Use(custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger))
			r.Use(custommw.ContentTypeValidator("application/json"))
			r.Use(validation.ValidateRequest)

			extractionHandler := handlers.NewExtractionHandler(a.ExtractionService, validation, a.Logger, errorHandler)
			r.Mount("/extraction", extractionHandler.Routes())
		})
	})
}

// getCORSConfig builds the CORS policy for the full middleware group.
// Same-origin addresses are always allowed; development mode adds the
// usual frontend dev server ports instead of the configured origins.
func (a *Application) getCORSConfig() custommw.CORSConfig {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	if a.isDevelopmentMode() {
		origins = append(origins, "http://localhost:3000", "http://127.0.0.1:3000")
	} else if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		origins = append(origins, a.Config.Security.AllowedOrigins...)
	}

	a.Logger.Info("CORS policy configured",
		slog.Bool("development", a.isDevelopmentMode()),
		slog.Any("allowed_origins", origins))

	return custommw.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// isDevelopmentMode reports whether the relaxed development policies
// apply.
func (a *Application) isDevelopmentMode() bool {
	if a.Config.Logging.Development {
		return true
	}
	if env := os.Getenv("GO_ENV"); env == "development" {
		return true
	}
	return false
}

// createServer builds the http.Server around the router.
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

// Start begins serving and write-probes the data tree. A server
// failure cancels the supplied context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "server starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("log_level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.verifyDataTree(ctx); err != nil {
		a.Logger.WarnContext(ctx, "data tree not fully writable", slog.String("detail", err.Error()))
	}

	a.Logger.InfoContext(ctx, "server ready",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop drains the server and shuts the background pieces down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.WebSocketHub.Stop()
	wsStats := a.WebSocketHub.Stats()
	a.Logger.InfoContext(ctx, "websocket hub stopped",
		slog.Int64("total_connections", wsStats.TotalConnections),
		slog.Int64("messages_sent", wsStats.MessagesSent),
		slog.Int64("dropped_clients", wsStats.DroppedClients))

	if err := a.RuntimeMetrics.Unregister(); err != nil {
		a.Logger.WarnContext(ctx, "unregister runtime metrics", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "shutdown observability", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until interrupted or the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "interrupt received")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := custommw.GetRequestID(r.Context())
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "websocket upgrade requested",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("request_id", reqID))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Same-origin and non-browser clients send no Origin header
			if origin == "" {
				return true
			}
			if a.isDevelopmentMode() {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		a.Logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	a.Logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	ws.ServeWS(a.WebSocketHub, conn, a.Logger)
}

// verifyDataTree write-probes every data directory and reports the
// ones that fail.
func (a *Application) verifyDataTree(ctx context.Context) error {
	probes := []struct {
		name string
		dir  string
	}{
		{"data", a.Paths.DataDir},
		{"sessions", a.Paths.SessionsDir},
		{"reports", a.Paths.ReportsDir},
		{"cache", a.Paths.CacheDir},
		{"logs", a.Paths.LogsDir},
	}

	manager := files.NewManager(a.Paths)
	var failures []string
	for _, probe := range probes {
		if probe.dir == "" {
			continue
		}
		marker := filepath.Join(probe.dir, ".write_probe")
		if err := manager.WriteFile(marker, []byte("probe")); err != nil {
			failures = append(failures, fmt.Sprintf("%s (%s)", probe.name, probe.dir))
			continue
		}
		_ = manager.DeleteFile(marker)
	}

	if len(failures) > 0 {
		return fmt.Errorf("directories not writable: %s", strings.Join(failures, ", "))
	}

	a.Logger.InfoContext(ctx, "data tree writable")
	return nil
}
