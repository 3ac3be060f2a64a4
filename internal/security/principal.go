// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package security

import (
	"sort"
	"sync"
)

// Kind classifies a principal.
type Kind string

const (
	// KindUser identifies a concrete repository user.
	KindUser Kind = "user"

	// KindGroup identifies a group membership.
	KindGroup Kind = "group"

	// KindAdmin marks an administrative identity that bypasses all
	// permission evaluation.
	KindAdmin Kind = "admin"

	// KindSystem marks the repository's own internal identity. Like
	// KindAdmin it bypasses evaluation entirely.
	KindSystem Kind = "system"

	// KindAnonymous marks an unauthenticated identity.
	KindAnonymous Kind = "anonymous"

	// KindFacetAuth marks a domain-derived grant: a rule set plus a
	// resolved permission bitmask.
	KindFacetAuth Kind = "facetauth"
)

// Principal is one identity attribute attached to an authenticated context.
// Principals are immutable after construction.
type Principal interface {
	// Kind reports the principal category.
	Kind() Kind

	// Name identifies the principal within its kind: user id, group id,
	// or domain name. The pseudo-principals return a fixed name.
	Name() string
}

// UserPrincipal identifies the authenticated user.
type UserPrincipal struct {
	ID string
}

func (p UserPrincipal) Kind() Kind   { return KindUser }
func (p UserPrincipal) Name() string { return p.ID }

// GroupPrincipal identifies one group the user belongs to.
type GroupPrincipal struct {
	ID string
}

func (p GroupPrincipal) Kind() Kind   { return KindGroup }
func (p GroupPrincipal) Name() string { return p.ID }

// AdminPrincipal grants unconditional access to everything.
type AdminPrincipal struct{}

func (AdminPrincipal) Kind() Kind   { return KindAdmin }
func (AdminPrincipal) Name() string { return "admin" }

// SystemPrincipal is the repository's own identity.
type SystemPrincipal struct{}

func (SystemPrincipal) Kind() Kind   { return KindSystem }
func (SystemPrincipal) Name() string { return "system" }

// AnonymousPrincipal is the identity of an unauthenticated session.
type AnonymousPrincipal struct{}

func (AnonymousPrincipal) Kind() Kind   { return KindAnonymous }
func (AnonymousPrincipal) Name() string { return "anonymous" }

// FacetAuthPrincipal is a domain-derived grant. It carries the domain's
// rule set and the permission bitmask merged from every role the user
// holds within the domain, directly or through a group.
type FacetAuthPrincipal struct {
	// Domain is the granting domain's name.
	Domain string

	// Rules is the domain's rule set. An item falls under this grant
	// when any rule matches it.
	Rules []DomainRule

	// Roles lists the role names that contributed to Permissions.
	// Kept for diagnostics only; evaluation uses the bitmask.
	Roles []string

	// Permissions is the OR-merged bitmask of all contributing roles.
	Permissions Permissions
}

func (p FacetAuthPrincipal) Kind() Kind   { return KindFacetAuth }
func (p FacetAuthPrincipal) Name() string { return p.Domain }

// PrincipalSet is the set of principals attached to one authenticated
// context. Uniqueness is by (kind, name). The set is safe for concurrent
// use; multiple request threads may share one identity context.
type PrincipalSet struct {
	mu      sync.RWMutex
	members map[string]Principal
}

func principalKey(p Principal) string {
	return string(p.Kind()) + ":" + p.Name()
}

// NewPrincipalSet creates a set holding the given principals.
func NewPrincipalSet(principals ...Principal) *PrincipalSet {
	s := &PrincipalSet{members: make(map[string]Principal, len(principals))}
	for _, p := range principals {
		s.members[principalKey(p)] = p
	}
	return s
}

// Add inserts a principal, replacing any existing principal with the same
// kind and name.
func (s *PrincipalSet) Add(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[principalKey(p)] = p
}

// Remove deletes the principal with the given kind and name.
func (s *PrincipalSet) Remove(kind Kind, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, string(kind)+":"+name)
}

// Clear empties the set. Logout routes through here.
func (s *PrincipalSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]Principal)
}

// Len returns the number of principals held.
func (s *PrincipalSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Contains reports whether a principal with the given kind and name is held.
func (s *PrincipalSet) Contains(kind Kind, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[string(kind)+":"+name]
	return ok
}

// HasKind reports whether any principal of the given kind is held.
func (s *PrincipalSet) HasKind(kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.members {
		if p.Kind() == kind {
			return true
		}
	}
	return false
}

// UserID returns the id of the user principal, or "" if none is held.
func (s *PrincipalSet) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.members {
		if u, ok := p.(UserPrincipal); ok {
			return u.ID
		}
	}
	return ""
}

// Groups returns the ids of all group principals, sorted.
func (s *PrincipalSet) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var groups []string
	for _, p := range s.members {
		if g, ok := p.(GroupPrincipal); ok {
			groups = append(groups, g.ID)
		}
	}
	sort.Strings(groups)
	return groups
}

// FacetAuth returns all facet-auth principals, sorted by domain name.
func (s *PrincipalSet) FacetAuth() []FacetAuthPrincipal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var grants []FacetAuthPrincipal
	for _, p := range s.members {
		if fa, ok := p.(FacetAuthPrincipal); ok {
			grants = append(grants, fa)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Domain < grants[j].Domain })
	return grants
}

// All returns every principal in a stable order (kind, then name).
func (s *PrincipalSet) All() []Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Principal, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.members[k])
	}
	return out
}
