package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trovemart/commerce/internal/fulfillment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server exposing the shipping surface to the
// storefront and admin collaborators.
type Server struct {
	port        int
	adminAPIKey string
	fulfillment *fulfillment.Service
	logger      *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port        int
	AdminAPIKey string
}

// New creates a new server instance.
func New(cfg Config, svc *fulfillment.Service, logger *otelzap.Logger) *Server {
	return &Server{
		port:        cfg.Port,
		adminAPIKey: cfg.AdminAPIKey,
		fulfillment: svc,
		logger:      logger,
	}
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// routes builds the HTTP routing table.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/shipping/serviceability", s.handleServiceability)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Route("/order/{id}/shipment", func(r chi.Router) {
				r.Post("/create", s.handleCreateShipment)
				r.Post("/assign-awb", s.handleAssignAWB)
				r.Post("/pickup", s.handlePickup)
				r.Post("/label", s.handleLabel)
				r.Post("/invoice", s.handleInvoice)
				r.Post("/manifest", s.handleManifest)
				r.Post("/documents", s.handleDocuments)
			})
			r.Get("/shipment/track/{awb}", s.handleTrack)
		})
	})

	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.routes() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// requireAdmin gates the privileged shipping endpoints on the shared admin
// key. With no key configured the endpoints stay closed rather than open.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey == "" || r.Header.Get("X-Admin-Key") != s.adminAPIKey {
			writeError(w, http.StatusUnauthorized, "admin credentials required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
