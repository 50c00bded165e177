package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/microfront/internal/api/http"
	"github.com/GriffinCanCode/microfront/internal/api/middleware"
	"github.com/GriffinCanCode/microfront/internal/api/ws"
	"github.com/GriffinCanCode/microfront/internal/domain/events"
	"github.com/GriffinCanCode/microfront/internal/domain/host"
	"github.com/GriffinCanCode/microfront/internal/domain/registry"
	"github.com/GriffinCanCode/microfront/internal/domain/router"
	"github.com/GriffinCanCode/microfront/internal/domain/source"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/config"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and all host dependencies.
type Server struct {
	engine  *gin.Engine
	http    *http.Server
	host    *host.Host
	logger  *logging.Logger
	metrics *monitoring.Metrics
	cancel  context.CancelFunc
}

// Config contains server configuration.
type Config struct {
	// BrowserURL is the shared URL all apps virtualize against.
	BrowserURL string
	Host       *config.Config
}

// New creates a fully wired server instance.
func New(cfg Config) (*Server, error) {
	hostCfg := cfg.Host
	if hostCfg == nil {
		hostCfg = config.LoadOrDefault()
	}

	logger, err := logging.New(logging.Config{
		Level:       hostCfg.Logging.Level,
		Development: hostCfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	metrics := monitoring.NewMetrics()

	browserURL := cfg.BrowserURL
	if browserURL == "" {
		browserURL = "http://localhost:" + hostCfg.Server.Port + "/"
	}
	browser, err := router.NewBrowser(browserURL)
	if err != nil {
		return nil, fmt.Errorf("invalid browser url: %w", err)
	}
	core := router.NewCore(browser, logger).WithMetrics(metrics)

	var cache *source.Cache
	if hostCfg.Loader.PrefetchCache {
		cache = source.NewCache()
	}
	loader := source.NewLoader(source.NewClient(hostCfg.Loader), cache, logger).
		WithMetrics(metrics)

	reg := registry.New().WithMetrics(metrics)
	dispatcher := events.NewDispatcher()
	facade := host.New(reg, loader, core, dispatcher, hostCfg.Sandbox, logger, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	if hostCfg.Manifest.Path != "" {
		if err := bootManifest(ctx, facade, hostCfg.Manifest.Path, logger); err != nil {
			cancel()
			return nil, err
		}
	}

	if !hostCfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(monitoring.Middleware(metrics))
	if hostCfg.RateLimit.Enabled {
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: hostCfg.RateLimit.RequestsPerSecond,
			Burst:             hostCfg.RateLimit.Burst,
		}))
	}

	handler := apihttp.NewHandler(facade)
	handler.Register(engine.Group("/api"))

	wsHandler := ws.NewHandler(dispatcher, logger, metrics)
	engine.GET("/ws/events", wsHandler.HandleConnection)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"apps":   facade.Stats(),
		})
	})

	go uptimeLoop(ctx, metrics)

	return &Server{
		engine:  engine,
		host:    facade,
		logger:  logger,
		metrics: metrics,
		cancel:  cancel,
	}, nil
}

// bootManifest registers or prefetches every app declared in apps.yaml.
func bootManifest(ctx context.Context, facade *host.Host, path string, logger *logging.Logger) error {
	manifest, err := config.LoadManifest(path)
	if err != nil {
		return err
	}
	for _, app := range manifest.Apps {
		_, err := facade.CreateApp(ctx, host.CreateRequest{
			Name:      app.Name,
			URL:       app.URL,
			Library:   app.Library,
			BaseRoute: app.BaseRoute,
			KeepAlive: app.KeepAlive,
			Prefetch:  app.Prefetch,
		})
		if err != nil {
			return fmt.Errorf("manifest app %q: %w", app.Name, err)
		}
		logger.Info("manifest app registered",
			zap.String("app", app.Name), zap.Bool("prefetch", app.Prefetch))
	}
	return nil
}

func uptimeLoop(ctx context.Context, metrics *monitoring.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateUptime()
		}
	}
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.logger.Info("host listening", zap.String("addr", addr))
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Host returns the app facade, used by tests and embedders.
func (s *Server) Host() *host.Host {
	return s.host
}

// Close shuts the server down gracefully.
func (s *Server) Close() error {
	s.cancel()
	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = s.http.Shutdown(ctx)
	}
	_ = s.logger.Sync()
	return err
}
