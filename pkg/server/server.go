// Package server exposes the HTTP surface: the websocket upgrade endpoint,
// a liveness probe and a JSON health snapshot.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	http   *http.Server
	logger *logrus.Entry
}

// New builds the HTTP server. The websocket handler is passed in so that the
// server package stays independent of the transport internals.
func New(port int, sessions *session.Manager, websocketHandler http.HandlerFunc) *Server {
	logger := logrus.WithField("component", "server")

	limiter := NewIPRateLimiter(DefaultRateLimitConfig())

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(Recoverer)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "crosstalk signaling server")
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sessions.Snapshot()); err != nil {
			logger.WithError(err).Warn("failed to write health snapshot")
		}
	})

	router.With(RateLimit(limiter)).Get("/ws", websocketHandler)

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errs := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.http.Addr).Info("listening")
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
