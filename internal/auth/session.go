// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carteret/repogate/internal/security"
)

var (
	// ErrSessionNotFound reports an unknown or deleted session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired reports a session past its expiry.
	ErrSessionExpired = errors.New("session expired")
)

// Session is one committed login: the assembled principal set plus its
// lifetime bookkeeping.
type Session struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	Principals     *security.PrincipalSet `json:"principals"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	ExpiresAt      time.Time              `json:"expires_at"`
}

// NewSession creates a session for a committed principal set with a
// fresh random id.
func NewSession(principals *security.PrincipalSet, ttl time.Duration) *Session {
	now := time.Now()
	userID := principals.UserID()
	if userID == "" {
		userID = "anonymous"
	}
	return &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Principals:     principals,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionStore persists sessions across restarts.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a live session. Expired sessions return
	// ErrSessionExpired, unknown ids ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every session of a user and reports how
	// many were removed.
	DeleteByUserID(ctx context.Context, userID string) (int, error)

	// Touch extends a session's expiry and stamps its last access.
	Touch(ctx context.Context, id string, newExpiry time.Time) error

	// CleanupExpired removes expired sessions and reports the count.
	CleanupExpired(ctx context.Context) (int, error)

	// Count returns the number of stored sessions, expired included.
	Count(ctx context.Context) (int, error)
}
