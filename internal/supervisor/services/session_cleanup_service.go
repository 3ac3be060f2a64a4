// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carteret/repogate/internal/auth"
	"github.com/carteret/repogate/internal/logging"
)

// SessionCleanupService sweeps expired sessions on an interval.
type SessionCleanupService struct {
	sessions auth.SessionStore
	interval time.Duration
	log      zerolog.Logger
}

// NewSessionCleanupService creates the sweeper.
func NewSessionCleanupService(sessions auth.SessionStore, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionCleanupService{
		sessions: sessions,
		interval: interval,
		log:      logging.With().Str("component", "session-cleanup").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.sessions.CleanupExpired(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("expired session sweep failed")
				continue
			}
			if removed > 0 {
				s.log.Debug().Int("removed", removed).Msg("expired sessions removed")
			}
		}
	}
}

// String identifies the service in supervisor events.
func (s *SessionCleanupService) String() string {
	return "session-cleanup"
}
