// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package auth

import "github.com/carteret/repogate/internal/security"

// Credentials is the typed login parameter. The zero UserID selects the
// anonymous branch; a non-nil Impersonator selects the impersonation
// branch and skips the password check entirely.
type Credentials struct {
	// UserID names the account to authenticate, or the target account
	// when impersonating. Empty means anonymous.
	UserID string

	// Password is verified against the provider federation. Ignored on
	// the anonymous and impersonation branches.
	Password string

	// Impersonator, when set, is the already-authenticated identity
	// requesting principals for UserID. It must carry a user principal
	// and must not be anonymous.
	Impersonator *security.PrincipalSet
}

// IsAnonymous reports whether the credentials select the anonymous branch.
func (c *Credentials) IsAnonymous() bool {
	return c.UserID == ""
}
