// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/security"
)

// DomainsFor resolves every domain that grants a role to the user
// directly or through any of the given groups. Domains come back
// sorted by name.
func (f *Federation) DomainsFor(ctx context.Context, userID string, groups []string) ([]security.Domain, error) {
	f.requireInit()

	// Collect the parents of every matching auth-role record. One
	// query per subject id keeps the store contract narrow.
	domainIDs := make(map[repository.ItemID]struct{})

	records, err := f.store.Query(ctx, repository.QuerySpec{
		Type:     repository.TypeAuthRole,
		Scope:    f.paths.Domains,
		HasValue: &repository.ValueMatch{Property: repository.PropUsers, Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("query domains of user %s: %w", userID, err)
	}
	for _, r := range records {
		domainIDs[r.Parent] = struct{}{}
	}

	for _, group := range groups {
		records, err := f.store.Query(ctx, repository.QuerySpec{
			Type:     repository.TypeAuthRole,
			Scope:    f.paths.Domains,
			HasValue: &repository.ValueMatch{Property: repository.PropGroups, Value: group},
		})
		if err != nil {
			return nil, fmt.Errorf("query domains of group %s: %w", group, err)
		}
		for _, r := range records {
			domainIDs[r.Parent] = struct{}{}
		}
	}

	domains := make([]security.Domain, 0, len(domainIDs))
	for id := range domainIDs {
		item, err := f.store.ResolveItem(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrItemNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve domain %s: %w", id, err)
		}
		if item.Node == nil || item.Node.Type != repository.TypeDomain {
			continue
		}
		domain, err := f.loadDomain(ctx, item.Node)
		if err != nil {
			return nil, err
		}
		domains = append(domains, domain)
	}

	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })
	return domains, nil
}

// loadDomain materializes one domain node: its rule children become
// DomainRules, its auth-role children become grants.
func (f *Federation) loadDomain(ctx context.Context, node *repository.NodeState) (security.Domain, error) {
	domain := security.Domain{Name: node.Name()}

	children, err := f.store.Children(ctx, node.ID)
	if err != nil {
		return security.Domain{}, fmt.Errorf("load domain %s: %w", domain.Name, err)
	}

	for _, child := range children {
		switch child.Type {
		case repository.TypeDomainRule:
			rule, err := f.loadDomainRule(ctx, child)
			if err != nil {
				return security.Domain{}, err
			}
			domain.Rules = append(domain.Rules, rule)

		case repository.TypeAuthRole:
			role, _ := child.FirstString(repository.PropRole)
			domain.Grants = append(domain.Grants, security.AuthRole{
				Role:   role,
				Users:  child.StringValues(repository.PropUsers),
				Groups: child.StringValues(repository.PropGroups),
			})
		}
	}
	return domain, nil
}

// loadDomainRule materializes one rule node from its facet children.
func (f *Federation) loadDomainRule(ctx context.Context, node *repository.NodeState) (security.DomainRule, error) {
	rule := security.DomainRule{Name: node.Name()}

	facets, err := f.store.Children(ctx, node.ID)
	if err != nil {
		return security.DomainRule{}, fmt.Errorf("load domain rule %s: %w", rule.Name, err)
	}
	for _, fc := range facets {
		if fc.Type != repository.TypeFacetRule {
			continue
		}
		facet, _ := fc.FirstString(repository.PropFacet)
		value, _ := fc.FirstString(repository.PropValue)
		facetType, _ := fc.FirstString(repository.PropFacetType)
		// A facet rule without an explicit equals flag is an equality
		// rule.
		equals := true
		if v, ok := fc.FirstBool(repository.PropEquals); ok {
			equals = v
		}
		filter, _ := fc.FirstBool(repository.PropFilter)
		rule.Facets = append(rule.Facets, security.FacetRule{
			Facet:  facet,
			Value:  value,
			Type:   facetType,
			Equals: equals,
			Filter: filter,
		})
	}
	return rule, nil
}

// PermissionsForRole resolves a role name to its permission bitmask.
// A missing role resolves to PermissionNone, never an error; the
// caller decides whether that is worth a warning.
func (f *Federation) PermissionsForRole(ctx context.Context, roleName string) (security.Permissions, error) {
	f.requireInit()

	node, err := f.store.ResolvePath(ctx, f.paths.Roles+"/"+roleName)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return security.PermissionNone, nil
		}
		return security.PermissionNone, fmt.Errorf("resolve role %s: %w", roleName, err)
	}

	role := security.Role{Name: roleName}
	if v, ok := node.FirstBool(repository.PropRead); ok {
		role.Read = v
	}
	if v, ok := node.FirstBool(repository.PropWrite); ok {
		role.Write = v
	}
	if v, ok := node.FirstBool(repository.PropRemove); ok {
		role.Remove = v
	}
	return role.Permissions(), nil
}

// HasRole reports whether a role node exists under the roles path.
// The orchestrator uses it to tell a missing role (warned, zero bits)
// from a role that grants nothing.
func (f *Federation) HasRole(ctx context.Context, roleName string) (bool, error) {
	f.requireInit()

	_, err := f.store.ResolvePath(ctx, f.paths.Roles+"/"+roleName)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve role %s: %w", roleName, err)
	}
	return true, nil
}

// EnsureRole creates or updates a role definition node. Bootstrap and
// test surface.
func (f *Federation) EnsureRole(ctx context.Context, role security.Role) error {
	f.requireInit()

	node, err := f.store.EnsureNode(ctx, f.paths.Roles+"/"+role.Name, repository.TypeRole)
	if err != nil {
		return fmt.Errorf("ensure role %s: %w", role.Name, err)
	}
	if err := f.store.SetProperty(ctx, node.ID, repository.PropRead,
		repository.BoolValue(role.Read)); err != nil {
		return err
	}
	if err := f.store.SetProperty(ctx, node.ID, repository.PropWrite,
		repository.BoolValue(role.Write)); err != nil {
		return err
	}
	if err := f.store.SetProperty(ctx, node.ID, repository.PropRemove,
		repository.BoolValue(role.Remove)); err != nil {
		return err
	}
	return f.store.Save(ctx)
}
