// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carteret/repogate/internal/federation"
	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/security"
)

var (
	// ErrAuthenticationFailed reports invalid credentials. The cause is
	// logged, never returned; callers see one uniform denial.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConfiguration reports that no usable credentials were supplied
	// at all, as opposed to credentials that failed verification.
	ErrConfiguration = errors.New("no credentials available")
)

// Orchestrator runs the login state machine: impersonation, anonymous,
// or password verification, followed by principal assembly. A login
// either commits a complete principal set or returns an error with
// nothing committed.
type Orchestrator struct {
	federation *federation.Federation
	log        zerolog.Logger
	audit      *logging.SecurityLogger
}

// NewOrchestrator creates an orchestrator over an initialized federation.
func NewOrchestrator(fed *federation.Federation) *Orchestrator {
	return &Orchestrator{
		federation: fed,
		log:        logging.With().Str("component", "auth").Logger(),
		audit:      logging.NewSecurityLogger(),
	}
}

// Login authenticates the credentials and returns the assembled
// principal set. Nil credentials are a configuration error; every
// verification failure is ErrAuthenticationFailed.
func (o *Orchestrator) Login(ctx context.Context, creds *Credentials) (*security.PrincipalSet, error) {
	if creds == nil {
		return nil, ErrConfiguration
	}

	if creds.Impersonator != nil {
		return o.loginImpersonated(ctx, creds)
	}

	if creds.IsAnonymous() {
		principals := security.NewPrincipalSet(security.AnonymousPrincipal{})
		o.audit.LogLoginSuccess("anonymous", "")
		RecordLogin("anonymous", true)
		return principals, nil
	}

	if creds.Password == "" {
		// No provider is consulted for an empty password.
		o.audit.LogLoginFailure(creds.UserID, "", "empty password")
		RecordLogin("password", false)
		return nil, ErrAuthenticationFailed
	}

	if !o.federation.Authenticate(ctx, creds.UserID, creds.Password) {
		RecordLogin("password", false)
		return nil, ErrAuthenticationFailed
	}

	principals, err := o.assemble(ctx, creds.UserID)
	if err != nil {
		o.log.Error().Err(err).Str("user", logging.SanitizeUserID(creds.UserID)).
			Msg("principal assembly failed after successful verification")
		RecordLogin("password", false)
		return nil, ErrAuthenticationFailed
	}
	RecordLogin("password", true)
	return principals, nil
}

// loginImpersonated installs the target user's principals on behalf of
// an already-authenticated impersonator. No password check runs.
func (o *Orchestrator) loginImpersonated(ctx context.Context, creds *Credentials) (*security.PrincipalSet, error) {
	imp := creds.Impersonator
	if imp.HasKind(security.KindAnonymous) || imp.UserID() == "" {
		o.audit.LogLoginFailure(creds.UserID, "", "impersonator not a named user")
		RecordLogin("impersonation", false)
		return nil, ErrAuthenticationFailed
	}
	if creds.UserID == "" {
		RecordLogin("impersonation", false)
		return nil, ErrAuthenticationFailed
	}

	principals, err := o.assemble(ctx, creds.UserID)
	if err != nil {
		o.log.Error().Err(err).Str("user", logging.SanitizeUserID(creds.UserID)).
			Msg("principal assembly failed during impersonation")
		RecordLogin("impersonation", false)
		return nil, ErrAuthenticationFailed
	}
	o.audit.LogImpersonation(imp.UserID(), creds.UserID)
	RecordLogin("impersonation", true)
	return principals, nil
}

// Logout clears the held principal set.
func (o *Orchestrator) Logout(principals *security.PrincipalSet) {
	if principals == nil {
		return
	}
	userID := principals.UserID()
	principals.Clear()
	o.audit.LogLogout(userID, "")
	RecordLogout()
}

// assemble builds the complete principal set for a verified user: the
// user principal, one group principal per membership, and one facet-auth
// principal per applicable domain carrying the OR-merged bitmask of the
// roles granted within it.
func (o *Orchestrator) assemble(ctx context.Context, userID string) (*security.PrincipalSet, error) {
	principals := security.NewPrincipalSet(security.UserPrincipal{ID: userID})

	groups, err := o.federation.Memberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve memberships of %s: %w", userID, err)
	}
	for _, group := range groups {
		principals.Add(security.GroupPrincipal{ID: group})
	}

	domains, err := o.federation.DomainsFor(ctx, userID, groups)
	if err != nil {
		return nil, fmt.Errorf("resolve domains of %s: %w", userID, err)
	}

	for _, domain := range domains {
		roles := domain.RolesFor(userID, groups)
		merged := security.PermissionNone
		for _, roleName := range roles {
			known, err := o.federation.HasRole(ctx, roleName)
			if err != nil {
				return nil, fmt.Errorf("resolve role %s: %w", roleName, err)
			}
			if !known {
				// An unknown role grants nothing but does not fail the
				// login.
				o.log.Warn().Str("role", roleName).Str("domain", domain.Name).
					Msg("domain grants an undefined role")
				continue
			}
			perms, err := o.federation.PermissionsForRole(ctx, roleName)
			if err != nil {
				return nil, fmt.Errorf("resolve role %s: %w", roleName, err)
			}
			merged |= perms
		}
		principals.Add(security.FacetAuthPrincipal{
			Domain:      domain.Name,
			Rules:       domain.Rules,
			Roles:       roles,
			Permissions: merged,
		})
	}

	return principals, nil
}
