// Package api exposes the storefront over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nft-storefront/internal/catalog"
	"nft-storefront/internal/checkout"
	"nft-storefront/internal/observability"
	"nft-storefront/internal/session"
)

// Defaults.
const (
	DefaultRefreshTimeout = 60 * time.Second
	DefaultShutdownGrace  = 30 * time.Second
	DefaultSweepInterval  = time.Minute
	maxWebhookBody        = 1 << 20
)

// Options configures a Server.
type Options struct {
	Sessions     *session.Store
	Boards       *catalog.Registry
	Checkout     *checkout.Service
	DisplayPrice string
	Logger       *zap.Logger

	// BaseContext bounds background refreshes. Defaults to context.Background.
	BaseContext    context.Context
	RefreshTimeout time.Duration
}

// Server serves the storefront API.
type Server struct {
	sessions       *session.Store
	boards         *catalog.Registry
	checkout       *checkout.Service
	displayPrice   string
	logger         *zap.Logger
	baseCtx        context.Context
	refreshTimeout time.Duration
	upgrader       websocket.Upgrader
	started        time.Time
	engine         *gin.Engine
}

// NewServer wires the routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	timeout := opts.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}

	s := &Server{
		sessions:       opts.Sessions,
		boards:         opts.Boards,
		checkout:       opts.Checkout,
		displayPrice:   opts.DisplayPrice,
		logger:         logger,
		baseCtx:        baseCtx,
		refreshTimeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Native mobile clients send no Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		started: time.Now(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/status", s.handleStatus)

	r.POST("/sessions", s.handleConnect)

	withSession := r.Group("/")
	withSession.Use(s.loadSession())
	{
		withSession.GET("/sessions/current", s.handleCurrentSession)
		withSession.GET("/collections", s.handleCollections)
		withSession.GET("/ws/collections", s.handleCollectionsWS)
	}

	protected := r.Group("/")
	protected.Use(s.loadSession(), s.requireSession())
	{
		protected.DELETE("/sessions/current", s.handleDisconnect)
		protected.POST("/collections/refresh", s.handleRefresh)
		protected.POST("/checkout", s.handleCheckout)
		protected.GET("/orders", s.handleListOrders)
	}

	r.GET("/orders/:id", s.handleGetOrder)
	r.GET("/orders/:id/provider-status", s.handleProviderStatus)
	r.POST("/webhooks/crossmint", s.handleWebhook)

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownGrace)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "running",
		"uptime":          time.Since(s.started).Round(time.Second).String(),
		"active_boards":   s.boards.Len(),
		"active_sessions": s.sessions.Active(),
	})
}

// Sweep ends expired sessions and drops every board whose session is gone.
func (s *Server) Sweep(ctx context.Context) error {
	expired, err := s.sessions.Sweep(ctx)
	for _, id := range expired {
		s.boards.Drop(id)
	}
	if err != nil {
		return err
	}

	// Boards can outlive their session when a refresh races a disconnect.
	for _, id := range s.boards.IDs() {
		_, err := s.sessions.Get(ctx, id)
		switch {
		case errors.Is(err, session.ErrNotConnected):
			s.boards.Drop(id)
		case err != nil:
			return err
		}
	}
	if len(expired) > 0 {
		s.logger.Info("expired sessions swept", zap.Int("count", len(expired)))
	}
	return nil
}

// RunSweeper calls Sweep every interval until ctx is canceled.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
