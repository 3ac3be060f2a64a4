// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"crypto/subtle"
	"fmt"

	json "github.com/goccy/go-json"
)

// staticAccount is one account in a static provider definition.
type staticAccount struct {
	ID       string   `json:"id"`
	Password string   `json:"password"`
	Active   bool     `json:"active"`
	Groups   []string `json:"groups,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// StaticProvider is the built-in external backend: a fixed account set
// parsed from the provider definition's "users" parameter (a JSON
// array). It serves small deployments and exercises the full external
// login path (active check, sync, breaker) in tests.
type StaticProvider struct {
	name     string
	accounts map[string]staticAccount
	synced   int
}

// newStaticProvider is the factory registered under type "static".
func newStaticProvider(cfg ProviderConfig) (SecurityProvider, error) {
	raw, ok := cfg.Params["users"]
	if !ok {
		return nil, fmt.Errorf("static provider %q: missing users parameter", cfg.Name)
	}
	var accounts []staticAccount
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, fmt.Errorf("static provider %q: parse users: %w", cfg.Name, err)
	}

	p := &StaticProvider{
		name:     cfg.Name,
		accounts: make(map[string]staticAccount, len(accounts)),
	}
	for _, a := range accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("static provider %q: account without id", cfg.Name)
		}
		p.accounts[a.ID] = a
	}
	return p, nil
}

func (p *StaticProvider) Name() string         { return p.name }
func (p *StaticProvider) Users() UserManager   { return p }
func (p *StaticProvider) Groups() GroupManager { return p }
func (p *StaticProvider) Roles() RoleManager   { return staticRoles{p} }

// Sync counts invocations; the static account set has nothing to
// reconcile.
func (p *StaticProvider) Sync(context.Context) error {
	p.synced++
	return nil
}

func (p *StaticProvider) Remove() {}

// Authenticate verifies the password in constant time.
func (p *StaticProvider) Authenticate(_ context.Context, userID, password string) (bool, error) {
	a, ok := p.accounts[userID]
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) == 1, nil
}

func (p *StaticProvider) GetUser(_ context.Context, userID string) (*User, error) {
	a, ok := p.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &User{ID: a.ID, Provider: p.name, Active: a.Active}, nil
}

func (p *StaticProvider) Memberships(_ context.Context, userID string) ([]string, error) {
	a, ok := p.accounts[userID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), a.Groups...), nil
}

// staticRoles exposes the account role lists as a RoleManager.
type staticRoles struct {
	p *StaticProvider
}

func (r staticRoles) Roles(_ context.Context, userID string) ([]string, error) {
	a, ok := r.p.accounts[userID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), a.Roles...), nil
}
