// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/carteret/repogate/internal/repository"
)

// bcryptCost is the work factor for stored password hashes.
const bcryptCost = 12

// InternalProvider serves accounts and groups straight from the
// content store. It is always present in the federation and is the
// target of external-account synchronization.
type InternalProvider struct {
	store repository.Store
	paths Paths
}

// NewInternalProvider creates the store-resident provider.
func NewInternalProvider(store repository.Store, paths Paths) *InternalProvider {
	return &InternalProvider{store: store, paths: paths}
}

func (p *InternalProvider) Name() string        { return ProviderInternal }
func (p *InternalProvider) Users() UserManager  { return p }
func (p *InternalProvider) Groups() GroupManager { return p }
func (p *InternalProvider) Roles() RoleManager  { return nil }

// Sync is a no-op: the store is already the source of truth.
func (p *InternalProvider) Sync(context.Context) error { return nil }

// Remove is a no-op: the provider holds no external resources.
func (p *InternalProvider) Remove() {}

func (p *InternalProvider) userPath(userID string) string {
	return p.paths.Users + "/" + userID
}

// Authenticate verifies the password against the stored bcrypt hash.
// Inactive accounts and accounts without a stored hash never
// authenticate here.
func (p *InternalProvider) Authenticate(ctx context.Context, userID, password string) (bool, error) {
	node, err := p.store.ResolvePath(ctx, p.userPath(userID))
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if active, ok := node.FirstBool(repository.PropActive); ok && !active {
		return false, nil
	}
	hash, ok := node.FirstString(repository.PropPassword)
	if !ok || hash == "" {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return false, nil
	}
	return true, nil
}

// GetUser resolves a stored account.
func (p *InternalProvider) GetUser(ctx context.Context, userID string) (*User, error) {
	node, err := p.store.ResolvePath(ctx, p.userPath(userID))
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	user := &User{ID: userID, Active: true}
	if provider, ok := node.FirstString(repository.PropProvider); ok {
		user.Provider = provider
	}
	if active, ok := node.FirstBool(repository.PropActive); ok {
		user.Active = active
	}
	if last, ok := node.FirstTime(repository.PropLastLogin); ok {
		user.LastLogin = last
	}
	return user, nil
}

// Memberships returns the groups whose member list contains the user.
func (p *InternalProvider) Memberships(ctx context.Context, userID string) ([]string, error) {
	groups, err := p.store.Query(ctx, repository.QuerySpec{
		Type:     repository.TypeGroup,
		Scope:    p.paths.Groups,
		HasValue: &repository.ValueMatch{Property: repository.PropMembers, Value: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("query memberships of %s: %w", userID, err)
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name())
	}
	return names, nil
}

// EnsureUser creates or updates a stored account with a freshly hashed
// password. It is the bootstrap and test surface for internal accounts.
func (p *InternalProvider) EnsureUser(ctx context.Context, userID, password string, active bool) error {
	node, err := p.store.EnsureNode(ctx, p.userPath(userID), repository.TypeUser)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", userID, err)
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", userID, err)
		}
		if err := p.store.SetProperty(ctx, node.ID, repository.PropPassword,
			repository.StringValue(string(hash))); err != nil {
			return fmt.Errorf("store password for %s: %w", userID, err)
		}
	}
	if err := p.store.SetProperty(ctx, node.ID, repository.PropActive,
		repository.BoolValue(active)); err != nil {
		return fmt.Errorf("store active flag for %s: %w", userID, err)
	}
	return p.store.Save(ctx)
}

// EnsureGroup creates or updates a stored group with the given members.
func (p *InternalProvider) EnsureGroup(ctx context.Context, groupID string, members ...string) error {
	node, err := p.store.EnsureNode(ctx, p.paths.Groups+"/"+groupID, repository.TypeGroup)
	if err != nil {
		return fmt.Errorf("ensure group %s: %w", groupID, err)
	}
	if err := p.store.SetProperty(ctx, node.ID, repository.PropMembers,
		repository.StringValues(members...)...); err != nil {
		return fmt.Errorf("store members of %s: %w", groupID, err)
	}
	return p.store.Save(ctx)
}

// addMembership appends the user to the group's member list, creating
// the group when needed. Used by external-account synchronization.
func (p *InternalProvider) addMembership(ctx context.Context, groupID, userID string) error {
	node, err := p.store.EnsureNode(ctx, p.paths.Groups+"/"+groupID, repository.TypeGroup)
	if err != nil {
		return err
	}
	members := node.StringValues(repository.PropMembers)
	for _, m := range members {
		if m == userID {
			return nil
		}
	}
	members = append(members, userID)
	return p.store.SetProperty(ctx, node.ID, repository.PropMembers,
		repository.StringValues(members...)...)
}

// syncExternalUser mirrors an externally authenticated account into the
// store: provider linkage, active flag, attributes, last login.
func (p *InternalProvider) syncExternalUser(ctx context.Context, user *User, now time.Time) error {
	node, err := p.store.EnsureNode(ctx, p.userPath(user.ID), repository.TypeUser)
	if err != nil {
		return err
	}
	if err := p.store.SetProperty(ctx, node.ID, repository.PropProvider,
		repository.StringValue(user.Provider)); err != nil {
		return err
	}
	if err := p.store.SetProperty(ctx, node.ID, repository.PropActive,
		repository.BoolValue(user.Active)); err != nil {
		return err
	}
	if err := p.store.SetProperty(ctx, node.ID, repository.PropLastLogin,
		repository.DateValue(now)); err != nil {
		return err
	}
	for name, value := range user.Attributes {
		if err := p.store.SetProperty(ctx, node.ID, name,
			repository.StringValue(value)); err != nil {
			return err
		}
	}
	return nil
}
