// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package security

import "sort"

// PropertyReader is the slice of content item state facet matching needs.
// internal/repository.NodeState satisfies it; tests use small stubs.
type PropertyReader interface {
	// HasProperty reports whether the item carries the named property.
	HasProperty(name string) bool

	// StringValues returns the string-typed values of the named property.
	// Values of other types are skipped, not coerced.
	StringValues(name string) []string
}

// FacetRule is a single property-based predicate scoping a domain rule to
// matching content items.
type FacetRule struct {
	// Facet is the property name the rule inspects.
	Facet string `json:"facet"`

	// Value is the expected property value.
	Value string `json:"value"`

	// Type is the property type the rule was declared for. Matching only
	// ever considers string values; Type is carried for diagnostics and
	// future query filtering.
	Type string `json:"type,omitempty"`

	// Equals selects equality matching. When false the rule is a negation:
	// it matches items that do NOT carry Value for the facet.
	Equals bool `json:"equals"`

	// Filter marks the rule for use in search-result filtering as well as
	// access checks. It does not change access-check matching.
	Filter bool `json:"filter,omitempty"`
}

// Match evaluates the rule against one item.
//
// An equality rule matches when the item carries the property and at least
// one of its string values equals Value exactly (case-sensitive). A
// negation rule matches when no string value equals Value; an item lacking
// the property satisfies a negation.
func (r FacetRule) Match(item PropertyReader) bool {
	if !item.HasProperty(r.Facet) {
		return !r.Equals
	}
	for _, v := range item.StringValues(r.Facet) {
		if v == r.Value {
			return r.Equals
		}
	}
	return !r.Equals
}

// DomainRule is a conjunction of facet rules: an item matches only when
// every facet rule matches.
type DomainRule struct {
	// Name identifies the rule within its domain, for diagnostics.
	Name string `json:"name,omitempty"`

	// Facets are the rule's predicates, all of which must hold.
	Facets []FacetRule `json:"facets"`
}

// Match reports whether the item satisfies every facet rule. A rule with
// no facets matches nothing; an empty conjunction would otherwise grant a
// domain over the whole repository by accident.
func (r DomainRule) Match(item PropertyReader) bool {
	if len(r.Facets) == 0 {
		return false
	}
	for _, f := range r.Facets {
		if !f.Match(item) {
			return false
		}
	}
	return true
}

// AuthRole grants a role name to a list of users and groups within one
// domain.
type AuthRole struct {
	// Role is the granted role's name, resolved to a bitmask at login.
	Role string

	// Users lists user ids holding the role.
	Users []string

	// Groups lists group ids whose members hold the role.
	Groups []string
}

// grantsTo reports whether the record grants its role to the given user or
// any of the given groups.
func (a AuthRole) grantsTo(userID string, groups map[string]struct{}) bool {
	for _, u := range a.Users {
		if u == userID {
			return true
		}
	}
	for _, g := range a.Groups {
		if _, ok := groups[g]; ok {
			return true
		}
	}
	return false
}

// Domain is a named bundle of rules plus role grants: "who may do what to
// which content". Domains are read from configuration at federation init
// and rebuilt wholesale on change notifications.
type Domain struct {
	// Name is the domain's identifier.
	Name string

	// Rules is the domain's rule set. An item belongs to the domain when
	// ANY rule matches (sibling rules are disjunctive; the facets inside
	// one rule are conjunctive).
	Rules []DomainRule

	// Grants maps users and groups to role names within this domain.
	Grants []AuthRole
}

// Match reports whether the item falls inside the domain.
func (d Domain) Match(item PropertyReader) bool {
	for _, r := range d.Rules {
		if r.Match(item) {
			return true
		}
	}
	return false
}

// RolesFor returns the union of role names granted to the user directly
// and through any of the given groups, sorted and de-duplicated.
func (d Domain) RolesFor(userID string, groups []string) []string {
	groupSet := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		groupSet[g] = struct{}{}
	}
	seen := make(map[string]struct{})
	var roles []string
	for _, grant := range d.Grants {
		if !grant.grantsTo(userID, groupSet) {
			continue
		}
		if _, dup := seen[grant.Role]; dup {
			continue
		}
		seen[grant.Role] = struct{}{}
		roles = append(roles, grant.Role)
	}
	sort.Strings(roles)
	return roles
}

// AppliesTo reports whether the domain grants any role to the user or
// groups.
func (d Domain) AppliesTo(userID string, groups []string) bool {
	return len(d.RolesFor(userID, groups)) > 0
}
