package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"paratext/internal/config"
	"paratext/internal/metrics"
	"paratext/internal/paraphrase"
)

const (
	shutdownGracePeriod = 10 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg         config.Config
	paraphraser *paraphrase.Handle
	metrics     *metrics.Metrics
	app         *echo.Echo
	address     string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, paraphraser *paraphrase.Handle, m *metrics.Metrics) (*Server, error) {
	if paraphraser == nil {
		return nil, errors.New("paraphraser must not be nil")
	}
	if m == nil {
		return nil, errors.New("metrics must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(observeRequests(m))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	if cfg.Server.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.Server.MaxBodyBytes, 10) + "B"))
	}
	if cfg.Server.RateLimit > 0 {
		store := middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))
		e.Use(middleware.RateLimiter(store))
	}

	srv := &Server{
		cfg:         cfg,
		paraphraser: paraphraser,
		metrics:     m,
		app:         e,
		address:     fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)
	if n, bounded := s.cfg.WorstCaseChunks(); bounded {
		level := slog.LevelInfo
		if n == 0 {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "write timeout covers this many slow chunks per request; raise server.write_timeout for longer documents",
			"chunks", n,
			"write_timeout", s.cfg.Server.WriteTimeout(),
			"chunk_timeout", s.cfg.Paraphrase.ChunkTimeout(),
		)
	}

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  s.cfg.Server.ReadTimeout(),
		WriteTimeout: s.cfg.Server.WriteTimeout(),
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	s.app.POST("/paraphraser/process", s.handleParaphrase)
	s.app.POST("/summarizer/process", s.handleSummarize)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":            "ok",
		"paraphraser_ready": s.paraphraser.Loaded(),
	})
}

// observeRequests feeds request counts and latency to Prometheus, labelled
// by route pattern so path parameters do not explode cardinality.
func observeRequests(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			m.ObserveRequest(endpoint, strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("paratext ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  POST /paraphraser/process")
	fmt.Println("  POST /summarizer/process")
	fmt.Printf("Paraphrase example:\n  curl http://%s:%d/paraphraser/process -F text='Saya suka makan nasi.' -F mode=natural\n", host, port)
	fmt.Printf("Summarize example:\n  curl http://%s:%d/summarizer/process -F file=@laporan.pdf -F sentences=3\n\n", host, port)
}
