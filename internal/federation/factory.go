// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"fmt"
	"sync"

	"github.com/carteret/repogate/internal/repository"
)

// Paths locates the security configuration subtrees in the content
// store.
type Paths struct {
	Users     string
	Groups    string
	Roles     string
	Domains   string
	Providers string
}

// DefaultPaths returns the conventional security configuration layout.
func DefaultPaths() Paths {
	return Paths{
		Users:     "/security/users",
		Groups:    "/security/groups",
		Roles:     "/security/roles",
		Domains:   "/security/domains",
		Providers: "/security/providers",
	}
}

// ProviderConfig is everything a factory gets to build one provider.
type ProviderConfig struct {
	// Name is the provider definition node's name.
	Name string

	// Type is the registered factory type the definition declares.
	Type string

	// Params are the definition's string properties, minus the
	// bookkeeping ones.
	Params map[string]string

	// Store and Paths give providers access to the content store.
	Store repository.Store
	Paths Paths
}

// Factory builds a runtime provider from its definition.
type Factory func(cfg ProviderConfig) (SecurityProvider, error)

// Registry maps provider type names to factories. Registration is a
// static table populated at startup; lookups happen on every
// federation rebuild.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for a type name.
func (r *Registry) Register(typeName string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = f
}

// Create instantiates a provider for the given definition. An unknown
// type reports ErrProviderNotRegistered.
func (r *Registry) Create(cfg ProviderConfig) (SecurityProvider, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("type %q: %w", cfg.Type, ErrProviderNotRegistered)
	}
	return f(cfg)
}

// Types returns the registered type names, for diagnostics.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// DefaultRegistry returns a registry carrying the built-in factories.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("static", newStaticProvider)
	return r
}
