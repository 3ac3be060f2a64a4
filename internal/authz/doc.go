// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package authz implements the permission evaluator: the per-session
// component that decides whether an authenticated identity may read,
// write, or remove a repository item.
//
// # Decision Pipeline
//
// IsGranted runs a fixed pipeline, in order:
//
//  1. System and Admin principals bypass evaluation entirely.
//  2. Property identifiers are decided by their parent node. A parent
//     that cannot be resolved grants access (fail-open), because the
//     property may be virtual or not yet persisted.
//  3. A bounded LRU cache answers repeated read checks. Checks that do
//     not include read evict the item's entry first, since a pending
//     write may change future read outcomes.
//  4. Structural shortcuts grant unstructured and folder nodes
//     unconditionally; the root node is readable through the shortcut
//     but never writable or removable through it.
//  5. Anonymous identities are denied any node in the workflow
//     namespace.
//  6. A fixed node-type table grants content-model definition nodes
//     without consulting facet rules. Subsearch and facet-result nodes
//     climb to their parent's type to decide.
//  7. Otherwise the identity's facet-auth principals are evaluated:
//     access is granted when ANY principal whose permission bitmask
//     covers the requested permissions has a domain rule matching the
//     item (logical OR across principals).
//
// Unresolvable items grant access, remove checks included: an item
// that is already gone has nothing left to protect. This fail-open
// stance is deliberate and is the opposite of the federation's
// fail-closed authentication stance.
//
// # Cache Coherence
//
// Cache entries exist only for pure read checks. The cache belongs to
// one evaluator, which belongs to one session; Close clears it.
//
// # Usage
//
//	ev := authz.New(store, principals, authz.DefaultCacheCapacity)
//	defer ev.Close()
//
//	ok, err := ev.IsGranted(ctx, itemID, security.PermissionRead)
//	if err := ev.CheckPermission(ctx, itemID, security.PermissionWrite); err != nil {
//	    // errors.Is(err, authz.ErrAccessDenied) or a store error
//	}
package authz
