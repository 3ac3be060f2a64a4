// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/carteret/repogate/internal/auth"
	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/security"
	"github.com/carteret/repogate/internal/validation"
)

// loginRequest is the login body. An empty user_id requests an
// anonymous session.
type loginRequest struct {
	UserID   string `json:"user_id" validate:"omitempty,max=128"`
	Password string `json:"password" validate:"omitempty,max=1024"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return
	}
	if verr := validation.Struct(&req); verr != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}

	principals, err := s.orch.Login(r.Context(), &auth.Credentials{
		UserID:   req.UserID,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationFailed) {
			writeError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid credentials")
			return
		}
		s.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "login failed")
		return
	}

	session := auth.NewSession(principals, s.sessionTTL)
	if err := s.sessions.Create(r.Context(), session); err != nil {
		s.log.Error().Err(err).Msg("session persistence failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "session persistence failed")
		return
	}

	token, err := s.tokens.Issue(session.ID, session.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("token issuance failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "token issuance failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		SessionID: session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	s.dropEvaluator(session.ID)
	if err := s.sessions.Delete(r.Context(), session.ID); err != nil {
		s.log.Error().Err(err).
			Str("session", logging.SanitizeSessionID(session.ID)).
			Msg("session deletion failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "logout failed")
		return
	}
	s.orch.Logout(session.Principals)

	w.WriteHeader(http.StatusNoContent)
}

type decisionResponse struct {
	ItemID      string `json:"item_id"`
	Permissions string `json:"permissions"`
	Granted     bool   `json:"granted"`
}

// handleDecision answers "may this session exercise these permissions
// on this item". Permissions come as a comma list, e.g. "read,write".
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "item_id is required")
		return
	}
	perms, err := security.ParsePermissions(r.URL.Query().Get("permissions"))
	if err != nil || perms == security.PermissionNone {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "permissions must name read, write, or remove")
		return
	}

	eval := s.evaluatorFor(session)
	granted, err := eval.IsGranted(r.Context(), repository.ItemID(itemID), perms)
	if err != nil {
		s.log.Error().Err(err).Str("item", itemID).Msg("permission evaluation failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "permission evaluation failed")
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		ItemID:      itemID,
		Permissions: perms.String(),
		Granted:     granted,
	})
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Groups    []string  `json:"groups"`
	Domains   []string  `json:"domains"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleSession describes the authenticated session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	domains := make([]string, 0)
	for _, grant := range session.Principals.FacetAuth() {
		domains = append(domains, grant.Domain)
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: session.ID,
		UserID:    session.UserID,
		Groups:    session.Principals.Groups(),
		Domains:   domains,
		ExpiresAt: session.ExpiresAt,
	})
}
