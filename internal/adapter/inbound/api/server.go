package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/config"

	"github.com/google/uuid"
)

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
}

// NewServer creates the API server around the given router.
func NewServer(cfg config.APIConfig, handler http.Handler) *Server {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:      withRequestContext(handler),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	slogger.InfoNoCtx("API server listening", slogger.Field("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withRequestContext attaches a correlation id to every request so handler and
// service logs of one request can be joined.
func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Request-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		ctx := slogger.WithCorrelationID(r.Context(), correlationID)
		w.Header().Set("X-Request-Id", correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
