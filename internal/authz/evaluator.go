// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/security"
)

// ErrAccessDenied reports a permission denial from CheckPermission.
var ErrAccessDenied = errors.New("access denied")

// typeGrants is the fixed precedence table for content-model definition
// nodes. A listed type is decided here without consulting facet rules:
// the check is granted exactly when the listed bitmask covers the
// requested permissions.
var typeGrants = map[string]security.Permissions{
	repository.TypeFacetSearch: security.PermissionAll,
	repository.TypeFacetSelect: security.PermissionAll,
	repository.TypeMirror:      security.PermissionAll,
	repository.TypeHandle:      security.PermissionRead | security.PermissionWrite,
	repository.TypePlugin:      security.PermissionRead,
	repository.TypeApplication: security.PermissionRead,
	repository.TypePage:        security.PermissionRead,
	repository.TypeSubSearch:   security.PermissionRead,
	repository.TypeFacetResult: security.PermissionRead,
}

// Evaluator decides permission checks for one authenticated session.
// It is safe for concurrent use; multiple request threads may share
// the session's identity context.
type Evaluator struct {
	store      repository.Store
	principals *security.PrincipalSet
	cache      *decisionCache
	log        zerolog.Logger
}

// New creates an evaluator for the given identity context. A
// non-positive cacheCapacity selects DefaultCacheCapacity.
func New(store repository.Store, principals *security.PrincipalSet, cacheCapacity int) *Evaluator {
	return &Evaluator{
		store:      store,
		principals: principals,
		cache:      newDecisionCache(cacheCapacity),
		log:        logging.With().Str("component", "authz").Logger(),
	}
}

// IsGranted reports whether the session may exercise perms on the item.
// Store failures other than "item not found" propagate as errors;
// "item not found" grants access (fail-open).
func (e *Evaluator) IsGranted(ctx context.Context, id repository.ItemID, perms security.Permissions) (bool, error) {
	granted, err := e.isGranted(ctx, id, perms)
	if err != nil {
		RecordError("store")
		return false, err
	}

	RecordDecision(perms.String(), granted)
	if !granted {
		e.log.Debug().
			Str("item", string(id)).
			Str("permissions", perms.String()).
			Msg("permission denied")
	}
	return granted, nil
}

// CheckPermission is IsGranted with an error-shaped result: nil when
// granted, ErrAccessDenied when denied, the store error otherwise.
func (e *Evaluator) CheckPermission(ctx context.Context, id repository.ItemID, perms security.Permissions) error {
	granted, err := e.IsGranted(ctx, id, perms)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%s on %s: %w", perms.String(), id, ErrAccessDenied)
	}
	return nil
}

// Close clears the decision cache. The evaluator must not be used
// afterwards.
func (e *Evaluator) Close() {
	e.cache.clear()
}

func (e *Evaluator) isGranted(ctx context.Context, id repository.ItemID, perms security.Permissions) (bool, error) {
	// System and administrative identities bypass evaluation.
	if e.principals.HasKind(security.KindSystem) || e.principals.HasKind(security.KindAdmin) {
		return true, nil
	}

	// Properties are decided by their parent node. An unresolvable
	// parent grants access through the not-found path below.
	if parent, _, ok := id.SplitProperty(); ok {
		return e.isGranted(ctx, parent, perms)
	}

	readOnly := perms == security.PermissionRead
	if readOnly {
		if granted, ok := e.cache.get(id); ok {
			RecordCacheHit()
			return granted, nil
		}
		RecordCacheMiss()
	} else if !perms.Has(security.PermissionRead) {
		// A pending write may change future read outcomes.
		e.cache.remove(id)
	}

	item, err := e.store.ResolveItem(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			// Transient, virtual, or already-gone items grant access.
			// An item that no longer exists has nothing left to protect.
			if perms.Has(security.PermissionRemove) {
				e.cache.remove(id)
			}
			if readOnly {
				e.cache.put(id, true)
			}
			return true, nil
		}
		return false, fmt.Errorf("resolve item %s: %w", id, err)
	}

	granted, err := e.canAccessItem(ctx, item.Node, perms)
	if err != nil {
		return false, err
	}
	if readOnly {
		e.cache.put(id, granted)
	}
	return granted, nil
}

func (e *Evaluator) canAccessItem(ctx context.Context, node *repository.NodeState, perms security.Permissions) (bool, error) {
	// Structural shortcuts.
	switch node.Type {
	case repository.TypeUnstructured, repository.TypeFolder:
		return true, nil
	}
	if node.IsRoot() && perms == security.PermissionRead {
		// Readable through the shortcut, never writable or removable
		// through it.
		return true, nil
	}

	// Anonymous identities never touch workflow configuration.
	if node.Namespace() == repository.NSWorkflow && e.principals.HasKind(security.KindAnonymous) {
		return false, nil
	}

	// Content-model definition nodes are decided by the fixed table.
	// Subsearch and facet-result nodes inherit their parent's row when
	// the parent is itself a listed definition node.
	effective := node.Type
	if (node.Type == repository.TypeSubSearch || node.Type == repository.TypeFacetResult) && node.Parent != "" {
		parentType, err := e.parentType(ctx, node)
		if err != nil {
			return false, err
		}
		if _, ok := typeGrants[parentType]; ok {
			effective = parentType
		}
	}
	if allowed, ok := typeGrants[effective]; ok {
		return allowed.Has(perms), nil
	}

	// Beyond the shortcuts only facet-auth grants can allow access.
	grants := e.principals.FacetAuth()
	if len(grants) == 0 {
		return false, nil
	}
	for _, grant := range grants {
		if checkFacetAuth(node, grant, perms) {
			return true, nil
		}
	}
	return false, nil
}

// parentType resolves the type of the node's parent. An unresolvable
// parent reports an empty type rather than an error.
func (e *Evaluator) parentType(ctx context.Context, node *repository.NodeState) (string, error) {
	item, err := e.store.ResolveItem(ctx, node.Parent)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("resolve parent of %s: %w", node.ID, err)
	}
	if item.Node == nil {
		return "", nil
	}
	return item.Node.Type, nil
}

// checkFacetAuth evaluates a single facet-auth grant against an item.
// The grant's bitmask must cover the requested permissions before any
// facet rule is consulted; a grant that cannot ever satisfy the
// request never matches, no matter what the item looks like.
func checkFacetAuth(node *repository.NodeState, grant security.FacetAuthPrincipal, perms security.Permissions) bool {
	if !grant.Permissions.Has(perms) {
		return false
	}
	for _, rule := range grant.Rules {
		if rule.Match(node) {
			return true
		}
	}
	return false
}
