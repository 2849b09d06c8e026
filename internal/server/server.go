// Package server HTTP фронтенд: страницы с проверкой полей запроса
// и точка входа JSON-RPC API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"zabbix_input/internal/api"
	"zabbix_input/internal/fields"
	"zabbix_input/internal/session"
	"zabbix_input/internal/stats"
)

const (
	// SessionCookie cookie с идентификатором сессии
	SessionCookie = "zbx_sessionid"

	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Options параметры HTTP сервера
type Options struct {
	Addr      string
	Language  string
	RateLimit float64
	RateBurst int
}

// Deps компоненты, которые обслуживает сервер
type Deps struct {
	Checker    *fields.Checker
	Pages      map[string]*fields.Table
	Sessions   *session.Store
	Service    *api.Service
	Dispatcher *api.Dispatcher
	Counters   *stats.Counters
	// Debug дополнительные обработчики под /debug/, например pprof
	Debug http.Handler
}

// Server HTTP сервер
type Server struct {
	opts    Options
	deps    Deps
	logger  *zap.Logger
	limiter *ipLimiter
	now     func() time.Time
	mux     *http.ServeMux
}

// New создает сервер и регистрирует маршруты
func New(opts Options, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		opts:    opts,
		deps:    deps,
		logger:  logger,
		limiter: newIPLimiter(opts.RateLimit, opts.RateBurst),
		now:     time.Now,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api_jsonrpc.php", s.limited(s.handleAPI))
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("/{page}", s.limited(s.handlePage))
	if deps.Debug != nil {
		s.mux.Handle("/debug/", deps.Debug)
	}
	return s
}

// Handler корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run обслуживает запросы до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ticker.C:
			if n := s.limiter.cleanup(s.now()); n > 0 {
				s.logger.Debug("Rate limiter entries expired", zap.Int("count", n))
			}
		case <-ctx.Done():
			s.logger.Info("Stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			return nil
		}
	}
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(remoteIP(r), s.now()) {
			s.deps.Counters.RateLimited.Add(1)
			s.logger.Debug("Request rate limited", zap.String("remote", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

type statusResponse struct {
	stats.Snapshot
	Sessions int `json:"sessions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: s.deps.Counters.Snapshot(),
		Sessions: s.deps.Sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
