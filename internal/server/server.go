// Package server provides the HTTP API for the storefront.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/storefront/internal/catalog"
	"github.com/hyperjump/storefront/internal/config"
	"github.com/hyperjump/storefront/internal/search"
	"github.com/hyperjump/storefront/internal/session"
	"github.com/hyperjump/storefront/internal/storage"
)

// Server is the HTTP server for the storefront API.
type Server struct {
	engine   *search.Engine
	catalog  *catalog.Store
	sessions *session.Store
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server

	metricsPath    string
	metricsHandler http.Handler

	importStorage storage.Storage
	onImport      func(n int)
	importEnabled bool
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h at path.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = h
	}
}

// WithCatalogImport enables the catalog write routes: POST /api/v1/products/import
// and DELETE /api/v1/products/{id}. Changes are persisted to st when it is non-nil,
// and onImport (optional) receives the new catalog size.
func WithCatalogImport(st storage.Storage, onImport func(n int)) Option {
	return func(s *Server) {
		s.importEnabled = true
		s.importStorage = st
		s.onImport = onImport
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	cat *catalog.Store,
	sessions *session.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		catalog:  cat,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(simulatedLatency(
			time.Duration(s.config.LatencyMinMS)*time.Millisecond,
			time.Duration(s.config.LatencyMaxMS)*time.Millisecond,
		))

		r.Post("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)

		r.Get("/products", s.handleListProducts)
		if s.importEnabled {
			r.Post("/products/import", s.handleImportProducts)
			r.Delete("/products/{id}", s.handleDeleteProduct)
		}
		r.Get("/products/{id}", s.handleGetProduct)
		r.Get("/products/{id}/related", s.handleRelated)
		r.Post("/products/{id}/pricing", s.handlePricing)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Get("/sessions/{id}/recommendations", s.handleRecommendations)
		r.Post("/sessions/{id}/cart", s.handleAddToCart)
		r.Delete("/sessions/{id}/cart/{productID}", s.handleRemoveFromCart)
		r.Post("/sessions/{id}/views", s.handleRecordView)
		r.Post("/sessions/{id}/purchases", s.handleRecordPurchase)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
