// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carteret/repogate/internal/auth"
)

type contextKey string

const sessionContextKey contextKey = "repogate.session"

// sessionFromContext returns the authenticated session, or nil.
func sessionFromContext(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// authenticate resolves the bearer token to a live session. The token
// only names the session; the session store is the authority on expiry
// and revocation.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		session, err := s.sessions.Get(r.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
				s.dropEvaluator(claims.SessionID)
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session no longer valid")
				return
			}
			s.log.Error().Err(err).Msg("session lookup failed")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "session lookup failed")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
