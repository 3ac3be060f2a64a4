// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package main is the entry point for the RepoGate server.
//
// The server initializes in order: configuration (koanf), logging
// (zerolog), the content store (BadgerDB), the security provider
// federation, the session and token layers, and finally the HTTP
// decision surface. Long-running components run under a suture
// supervision tree and the process shuts down gracefully on SIGINT or
// SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/carteret/repogate/internal/api"
	"github.com/carteret/repogate/internal/auth"
	"github.com/carteret/repogate/internal/config"
	"github.com/carteret/repogate/internal/federation"
	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/supervisor"
	"github.com/carteret/repogate/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Content store.
	store, err := repository.Open(repository.Options{
		Dir:      cfg.Store.Dir,
		InMemory: cfg.Store.InMemory,
	})
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("content store close failed")
		}
	}()
	logging.Info().Bool("in_memory", cfg.Store.InMemory).Msg("content store open")

	// Security provider federation.
	fed := federation.New(federation.Config{
		Store: store,
		Paths: federation.Paths{
			Users:     cfg.Security.UsersPath,
			Groups:    cfg.Security.GroupsPath,
			Roles:     cfg.Security.RolesPath,
			Domains:   cfg.Security.DomainsPath,
			Providers: cfg.Security.ProvidersPath,
		},
	})
	if err := fed.Init(ctx); err != nil {
		return fmt.Errorf("initialize federation: %w", err)
	}
	defer func() {
		if err := fed.Close(); err != nil {
			logging.Error().Err(err).Msg("federation close failed")
		}
	}()

	// Session store on its own Badger database.
	sessionOpts := badger.DefaultOptions(filepath.Join(cfg.Store.Dir, "sessions")).WithLogger(nil)
	if cfg.Store.InMemory {
		sessionOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	sessionDB, err := badger.Open(sessionOpts)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() {
		if err := sessionDB.Close(); err != nil {
			logging.Error().Err(err).Msg("session store close failed")
		}
	}()
	sessions := auth.NewBadgerSessionStore(sessionDB)

	tokens, err := auth.NewTokenManager(cfg.Session.TokenSecret, cfg.Session.TTL)
	if err != nil {
		return fmt.Errorf("initialize token manager: %w", err)
	}

	// HTTP surface.
	srv := api.NewServer(api.Options{
		Store:         store,
		Orchestrator:  auth.NewOrchestrator(fed),
		Sessions:      sessions,
		Tokens:        tokens,
		Server:        cfg.Server,
		SessionTTL:    cfg.Session.TTL,
		CacheCapacity: cfg.Authz.CacheCapacity,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSecurityService(services.NewFederationService(fed))
	tree.AddSecurityService(services.NewSessionCleanupService(sessions, cfg.Session.CleanupInterval))
	tree.AddAPIService(services.NewHTTPService(httpServer, 10*time.Second))
	logging.Info().Str("addr", httpServer.Addr).Msg("starting supervisor tree")

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service missed the shutdown timeout")
		}
	}

	logging.Info().Msg("server stopped")
	return nil
}
