// Package server
//
// @title CarePulse Web
// @version 1.0
// @description Server-rendered front end and same-origin GraphQL proxy for CarePulse
// @host localhost:3000
// @BasePath /
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/carepulse-dev/carepulse/internal/admin"
	"github.com/carepulse-dev/carepulse/internal/config"
	"github.com/carepulse-dev/carepulse/internal/gate"
	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/logger"
	"github.com/carepulse-dev/carepulse/internal/proxy"
	"github.com/carepulse-dev/carepulse/internal/workers"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     zerolog.Logger
	httpClient *http.Client
	registry   *prometheus.Registry
	proxy      *proxy.Handler
	guard      *admin.Guard
	probe      *workers.UpstreamProbe
	gatePolicy gate.Policy
	version    string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	policy, err := gate.ParsePolicy(cfg.Admin.GatePolicy)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// One pooled client for every upstream call; redirects are never followed
	httpClient := graphql.NewHTTPClient(nil, cfg.Upstream.ProxyTimeout)

	probeClient := graphql.NewServerClient(graphql.ServerOptions{
		Endpoint:   cfg.Upstream.URL,
		HTTPClient: httpClient,
		Logger:     logger.Component(zlog, "probe"),
	})
	probe, err := workers.NewUpstreamProbe(probeClient, cfg.Upstream.ProbeSchedule, cfg.Upstream.RequestTimeout,
		registry, logger.Component(zlog, "probe"))
	if err != nil {
		return nil, err
	}

	guardLog := logger.Component(zlog, "guard")
	server := &Server{
		config:     cfg,
		logger:     zlog,
		httpClient: httpClient,
		registry:   registry,
		proxy: proxy.New(cfg.Upstream.URL, httpClient, logger.Component(zlog, "proxy"),
			proxy.NewMetrics(registry)),
		guard: admin.NewGuard(admin.UpstreamClients(cfg.Upstream.URL, httpClient, guardLog),
			cfg.Upstream.RequestTimeout, cfg.Admin.DeniedRedirectTo, guardLog),
		probe:      probe,
		gatePolicy: policy,
		version:    version,
	}

	if err := server.setupRouter(); err != nil {
		return nil, err
	}

	return server, nil
}

// upstreamClient builds a per-request GraphQL client acting with cookieHeader
func (s *Server) upstreamClient(cookieHeader string) *graphql.Client {
	return graphql.NewServerClient(graphql.ServerOptions{
		Endpoint:     s.config.Upstream.URL,
		CookieHeader: cookieHeader,
		HTTPClient:   s.httpClient,
		Logger:       s.logger,
	})
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	s.router = gin.New()
	s.router.SetHTMLTemplate(tmpl)

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(gate.Middleware(s.gatePolicy, logger.Component(s.logger, "gate")))

	// Operational endpoints
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ready", s.readinessCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// Same-origin GraphQL proxy (answers its own preflight)
	s.router.POST("/api/graphql", s.proxy.Forward)
	s.router.OPTIONS("/api/graphql", s.proxy.Preflight)

	// Session introspection for scripts on other allowed origins
	sessionAPI := s.router.Group("/api/session")
	sessionAPI.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Cookie"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	{
		sessionAPI.GET("", s.getSession)
	}

	// Pages
	s.router.GET("/", s.home)
	s.router.POST("/login", s.login)
	s.router.POST("/logout", s.logout)

	adminRoutes := s.router.Group("/admin")
	{
		adminRoutes.GET("", s.adminDashboard)
		adminRoutes.POST("/appointments/:id/schedule", s.scheduleAppointment)
		adminRoutes.POST("/appointments/:id/cancel", s.cancelAppointment)
	}

	return nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.HTTP.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.probe.Start(context.Background())

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.HTTP.Addr).Str("upstream", s.config.Upstream.URL).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.probe.Stop()
		return fmt.Errorf("http server error: %w", err)
	}

	s.probe.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
