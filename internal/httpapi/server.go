// Package httpapi serves the read-only status API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/siteupbot/internal/httpapi/middleware"
	"github.com/hamed0406/siteupbot/internal/repo"
)

type Options struct {
	Keys           []string
	AllowedOrigins []string
	ReqPerMin      int
	Burst          int
}

type Server struct {
	Logger *zap.Logger
	Store  repo.StatusStore
	Opts   Options
}

func NewServer(l *zap.Logger, store repo.StatusStore, opts Options) *Server {
	return &Server{Logger: l, Store: store, Opts: opts}
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.Opts.AllowedOrigins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.Opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
		MaxAge:         300,
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.corsHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(s.Opts.ReqPerMin, s.Opts.Burst))
		r.Use(apimw.RequireKey(s.Opts.Keys))
		r.Get("/status", s.handleStatus)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Store.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("status_read_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no check completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("api_listen", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.Logger.Info("api_stopped")
		return nil
	}
}
