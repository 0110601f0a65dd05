// Package rpc exposes the wallet dispatcher to a local host process (the
// browser extension's native messaging bridge, or a test harness) as
// JSON-RPC 2.0 over HTTP.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"atoll-wallet/go-core/internal/config"
	"atoll-wallet/go-core/internal/dispatch"
	"atoll-wallet/go-core/internal/metrics"
	"atoll-wallet/go-core/internal/platform/ratelimiter"
	"atoll-wallet/go-core/pkg/models"
)

const DefaultRPCAddr = "127.0.0.1:8787"

// Wallet is the dispatcher surface served over RPC.
type Wallet interface {
	Handle(ctx context.Context, req models.Request) models.Envelope
	Describe() (models.AccountDescriptor, error)
	Resources() []string
	State() dispatch.State
}

type Server struct {
	httpServer     *http.Server
	wallet         Wallet
	rpcToken       string
	allowedOrigins map[string]struct{}
	maxBodyBytes   int64
	limiter        *ratelimiter.MapLimiter
	metrics        *metrics.Metrics
	logger         *slog.Logger
	version        string
}

func NewServer(cfg config.ServerConfig, wallet Wallet, m *metrics.Metrics, logger *slog.Logger, version string) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultRPCAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		wallet:         wallet,
		rpcToken:       cfg.Token,
		allowedOrigins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		maxBodyBytes:   cfg.MaxBodyBytes,
		limiter:        ratelimiter.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		metrics:        m,
		logger:         logger,
		version:        version,
	}
	for _, origin := range cfg.AllowedOrigins {
		s.allowedOrigins[origin] = struct{}{}
	}
	if s.rpcToken == "" {
		logger.Warn("ATOLL_RPC_TOKEN is not set; RPC auth disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.Handle("/metrics", m.Handler())
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           m.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()
	s.logger.Info("rpc server listening", "addr", s.httpServer.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.health())
}

func (s *Server) health() map[string]string {
	state := "unknown"
	if s.wallet != nil {
		state = s.wallet.State().String()
	}
	return map[string]string{"status": "ok", "state": state}
}
