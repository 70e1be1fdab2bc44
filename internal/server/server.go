// Package server provides the HTTP and WebSocket API for matchfeed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/delivery"
	"github.com/hyperjump/matchfeed/internal/matching"
)

const requestTimeout = 90 * time.Second

// Server is the HTTP server for the matchfeed API.
type Server struct {
	matching *matching.Service
	sessions *delivery.Manager
	catalog  catalog.Store
	index    *catalog.KeywordIndex
	verifier auth.Verifier
	config   *config.ServerConfig
	logger   *zap.Logger

	validate *validator.Validate
	upgrader websocket.Upgrader
	server   *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil, in which case
// keyword search answers 501.
func NewServer(
	svc *matching.Service,
	sessions *delivery.Manager,
	jobs catalog.Store,
	index *catalog.KeywordIndex,
	verifier auth.Verifier,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		matching: svc,
		sessions: sessions,
		catalog:  jobs,
		index:    index,
		verifier: verifier,
		config:   cfg,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/jobs", s.handleDeliverySocket)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RateLimitRequests > 0 {
			r.Use(httprate.Limit(
				s.config.RateLimitRequests,
				s.config.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
				}),
			))
		}
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(s.authenticate)

		r.Get("/me", s.handleMe)
		r.Put("/profile", s.handleSaveProfile)
		r.Post("/resume", s.handleUploadResume)
		r.Post("/rankings", s.handleTriggerRanking)
		r.Get("/rankings/page", s.handleRankingPage)
		r.Get("/jobs/search", s.handleSearchJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.config.CORSOrigins) == 0 {
		return true
	}
	for _, allowed := range s.config.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
