// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"errors"
	"time"
)

// ProviderInternal is the reserved name of the store-resident provider.
const ProviderInternal = "internal"

var (
	// ErrUserNotFound reports that a user manager holds no account for
	// the given id. Callers use it to continue dispatch; every other
	// provider error is a failure.
	ErrUserNotFound = errors.New("user not found")

	// ErrProviderNotRegistered reports a provider definition naming a
	// type the factory registry does not know.
	ErrProviderNotRegistered = errors.New("security provider not registered")
)

// User is the provider-facing view of one account.
type User struct {
	// ID is the account identifier, unique across the federation.
	ID string

	// Provider names the provider that owns the account. Empty means
	// the internal provider.
	Provider string

	// Active reports whether the account may log in. External logins
	// of inactive accounts are denied after password verification.
	Active bool

	// Attributes carries provider-specific account attributes that are
	// mirrored into the content store on external login.
	Attributes map[string]string

	// LastLogin is the most recent successful login, zero if never.
	LastLogin time.Time
}

// UserManager authenticates and resolves accounts for one provider.
type UserManager interface {
	// Authenticate verifies the password for the given user. A wrong
	// password reports (false, nil); errors mean the check could not
	// be performed.
	Authenticate(ctx context.Context, userID, password string) (bool, error)

	// GetUser resolves an account, ErrUserNotFound when absent.
	GetUser(ctx context.Context, userID string) (*User, error)
}

// GroupManager resolves group memberships for one provider.
type GroupManager interface {
	// Memberships returns the ids of all groups the user belongs to.
	Memberships(ctx context.Context, userID string) ([]string, error)
}

// RoleManager is the optional role capability of a provider.
type RoleManager interface {
	// Roles returns provider-defined role names for the user.
	Roles(ctx context.Context, userID string) ([]string, error)
}

// SecurityProvider bundles the capabilities of one authentication
// backend. Providers are created from store-resident definitions at
// federation init and removed wholesale on every rebuild.
type SecurityProvider interface {
	// Name is the provider's registered name.
	Name() string

	// Users returns the provider's user manager.
	Users() UserManager

	// Groups returns the provider's group manager.
	Groups() GroupManager

	// Roles returns the provider's role manager, or nil when the
	// provider has none.
	Roles() RoleManager

	// Sync runs the provider's own reconciliation hook. The federation
	// calls it after a successful external login; failures are logged,
	// never fatal.
	Sync(ctx context.Context) error

	// Remove tears the provider down. Called on every federation
	// rebuild and on Close.
	Remove()
}
