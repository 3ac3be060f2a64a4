// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package api is the thin HTTP surface of the engine: login, logout,
// and permission decisions for authenticated sessions, plus the
// Prometheus scrape endpoint. General content routing is out of scope.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/carteret/repogate/internal/auth"
	"github.com/carteret/repogate/internal/authz"
	"github.com/carteret/repogate/internal/config"
	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/middleware"
	"github.com/carteret/repogate/internal/repository"
)

// Options wires the server's collaborators.
type Options struct {
	Store         repository.Store
	Orchestrator  *auth.Orchestrator
	Sessions      auth.SessionStore
	Tokens        *auth.TokenManager
	Server        config.ServerConfig
	SessionTTL    time.Duration
	CacheCapacity int
}

// Server is the HTTP decision surface. It keeps one permission
// evaluator per live session so the session's read cache survives
// across requests.
type Server struct {
	store         repository.Store
	orch          *auth.Orchestrator
	sessions      auth.SessionStore
	tokens        *auth.TokenManager
	cfg           config.ServerConfig
	sessionTTL    time.Duration
	cacheCapacity int
	log           zerolog.Logger

	mu         sync.Mutex
	evaluators map[string]*authz.Evaluator
}

// NewServer creates the HTTP surface.
func NewServer(opts Options) *Server {
	return &Server{
		store:         opts.Store,
		orch:          opts.Orchestrator,
		sessions:      opts.Sessions,
		tokens:        opts.Tokens,
		cfg:           opts.Server,
		sessionTTL:    opts.SessionTTL,
		cacheCapacity: opts.CacheCapacity,
		log:           logging.With().Str("component", "api").Logger(),
		evaluators:    make(map[string]*authz.Evaluator),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Metrics("/api/v1"))
		if s.cfg.RateLimitReqs > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitReqs,
				s.cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}

		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/logout", s.handleLogout)
			r.Get("/decision", s.handleDecision)
			r.Get("/session", s.handleSession)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// evaluatorFor returns the session's evaluator, creating it on first
// use.
func (s *Server) evaluatorFor(session *auth.Session) *authz.Evaluator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eval, ok := s.evaluators[session.ID]; ok {
		return eval
	}
	eval := authz.New(s.store, session.Principals, s.cacheCapacity)
	s.evaluators[session.ID] = eval
	return eval
}

// dropEvaluator releases the session's evaluator on logout.
func (s *Server) dropEvaluator(sessionID string) {
	s.mu.Lock()
	eval, ok := s.evaluators[sessionID]
	delete(s.evaluators, sessionID)
	s.mu.Unlock()
	if ok {
		eval.Close()
	}
}
