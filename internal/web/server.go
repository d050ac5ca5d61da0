// Package web serves the bot's HTTP surface: the platform webhook, a health
// probe and token-guarded admin endpoints for delivery passes.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/traveler/internal/delivery"
	"github.com/zulandar/traveler/internal/models"
	"go.uber.org/zap"
)

// AdminTokenHeader carries the admin token on /admin requests.
const AdminTokenHeader = "X-Admin-Token"

const shutdownTimeout = 10 * time.Second

// PassRunner starts a delivery pass on demand.
type PassRunner interface {
	RunNow(ctx context.Context, trigger string) (*delivery.Result, error)
}

// RunLister lists journaled delivery passes.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]models.DeliveryRun, error)
}

// Server is the gin-based HTTP server.
type Server struct {
	addr   string
	engine *gin.Engine
	logger *zap.Logger
}

// ServerOpts holds configuration for the HTTP server.
type ServerOpts struct {
	Port        int          // defaults to 8080
	WebhookPath string       // route for Webhook, e.g. "/webhook/<token>"
	Webhook     http.Handler // optional
	Passes      PassRunner   // optional; enables POST /admin/deliver
	Runs        RunLister    // optional; enables GET /admin/runs
	AdminToken  string       // admin routes are disabled when empty
	Logger      *zap.Logger  // defaults to zap.NewNop()
}

// New builds the server and registers its routes.
func New(opts ServerOpts) (*Server, error) {
	if opts.Webhook != nil && opts.WebhookPath == "" {
		return nil, fmt.Errorf("web: webhook path is required with a webhook handler")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		addr:   fmt.Sprintf(":%d", opts.Port),
		engine: engine,
		logger: logger,
	}
	registerRoutes(engine, opts, logger)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	<-errCh
	return nil
}

// registerRoutes sets up all routes on the gin router.
func registerRoutes(router *gin.Engine, opts ServerOpts, logger *zap.Logger) {
	router.GET("/healthz", handleHealth())

	if opts.Webhook != nil {
		router.POST(opts.WebhookPath, gin.WrapH(opts.Webhook))
	}

	if opts.AdminToken == "" {
		return
	}
	admin := router.Group("/admin", requireToken(opts.AdminToken))
	if opts.Passes != nil {
		admin.POST("/deliver", handleDeliver(opts.Passes, logger))
	}
	if opts.Runs != nil {
		admin.GET("/runs", handleRuns(opts.Runs))
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleDeliver runs a pass synchronously. The pass outlives a client
// disconnect.
func handleDeliver(passes PassRunner, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		res, err := passes.RunNow(ctx, delivery.TriggerManual)
		switch {
		case errors.Is(err, delivery.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			logger.Warn("manual delivery pass failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": res})
		default:
			c.JSON(http.StatusOK, gin.H{"result": res})
		}
	}
}

func handleRuns(runs RunLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit <= 0 || limit > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		list, err := runs.RecentRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": list})
	}
}

func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request at debug level. Webhook paths embed the
// bot token, so only the matched route pattern is logged.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
