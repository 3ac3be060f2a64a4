// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package security defines the static authorization model shared by the
// permission evaluator and the authentication orchestrator: permission
// bitmasks, principals, roles, domains, and facet rules.
//
// The package is pure data plus lookup; it performs no repository access.
// Behavior lives in internal/authz (evaluation) and internal/federation
// (resolution from the content store).
//
// # Model
//
// A Role names a permission bitmask (read/write/remove). A Domain bundles
// an ordered set of DomainRules - each a conjunction of FacetRules - with
// grants mapping users and groups to role names. A content item falls
// inside a domain when ANY of the domain's rules matches it; a single rule
// matches only when ALL of its facet rules match.
//
// A login produces a PrincipalSet: the user principal, one group principal
// per membership, and one FacetAuthPrincipal per applicable domain carrying
// the merged permission bitmask for every role the user holds there.
//
// # Permission bitmask
//
// The bit positions are fixed and match the diagnostic print order
// (read, remove, write):
//
//	PermissionRead   = 1
//	PermissionRemove = 2
//	PermissionWrite  = 4
//
// Principals carry resolved bitmasks, never symbolic role names, once
// resolution has happened.
package security
