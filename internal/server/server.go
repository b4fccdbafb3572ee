package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
	"github.com/nereus-labs/nereus/internal/server/handler"
	"github.com/nereus-labs/nereus/internal/server/middleware"
	"github.com/nereus-labs/nereus/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	APIKey      string // guards operator endpoints; empty disables the check

	// RateLimit caps requests per client IP per RateWindow. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Chat      *handler.ChatHandler
	Wallets   *handler.WalletHandler
	Selection *handler.SelectionHandler
	Tx        *handler.TxHandler
	Walrus    *handler.WalrusHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in the middleware chain.
// wsHub, limiter, m and Handlers.Walrus may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, m *metrics.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	operator := middleware.RequireKey(cfg.APIKey)

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/history", handlers.Markets.GetHistory)
	mux.Handle("POST /api/markets/refresh", operator(http.HandlerFunc(handlers.Markets.RefreshMarkets)))

	mux.HandleFunc("GET /api/market/{marketId}/chat", handlers.Chat.ListMessages)
	mux.HandleFunc("POST /api/market/{marketId}/chat", handlers.Chat.PostMessage)

	mux.HandleFunc("GET /api/wallets/{address}", handlers.Wallets.GetWallet)

	mux.HandleFunc("GET /api/sessions/{id}/selection", handlers.Selection.GetSelection)
	mux.HandleFunc("PUT /api/sessions/{id}/selection", handlers.Selection.UpdateSelection)

	mux.HandleFunc("POST /api/tx/buy", handlers.Tx.BuildBuy)
	mux.HandleFunc("POST /api/tx/create-market", handlers.Tx.BuildCreateMarket)
	mux.HandleFunc("POST /api/tx/order", handlers.Tx.BuildOrder)
	mux.HandleFunc("GET /api/tx/{digest}", handlers.Tx.GetTx)

	if handlers.Walrus != nil {
		mux.HandleFunc("GET /api/walrus/{blobId}", handlers.Walrus.GetBlob)
	}

	mux.Handle("GET /metrics", m.Handler())

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	h = middleware.Logging(logger, m)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("server: starting", slog.String("addr", l.Addr().String()))
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
