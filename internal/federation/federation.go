// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carteret/repogate/internal/logging"
	"github.com/carteret/repogate/internal/repository"
)

// Config configures the federation.
type Config struct {
	// Store is the content store holding security configuration.
	Store repository.Store

	// Paths locates the security subtrees. Zero value selects
	// DefaultPaths.
	Paths Paths

	// Registry supplies provider factories. Nil selects
	// DefaultRegistry.
	Registry *Registry
}

// runtimeProvider pairs a provider with its dispatch-side user
// manager, which is breaker-wrapped for external providers.
type runtimeProvider struct {
	provider SecurityProvider
	users    UserManager
}

// Federation is the process-wide security provider set. It must be
// initialized with Init before use and torn down with Close.
type Federation struct {
	store    repository.Store
	paths    Paths
	registry *Registry
	log      zerolog.Logger
	audit    *logging.SecurityLogger

	mu          sync.RWMutex
	initialized bool
	providers   map[string]*runtimeProvider
	order       []string
	internal    *InternalProvider
	generation  uint64
	sub         repository.Subscription
}

// New constructs an uninitialized federation.
func New(cfg Config) *Federation {
	if cfg.Paths == (Paths{}) {
		cfg.Paths = DefaultPaths()
	}
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	return &Federation{
		store:    cfg.Store,
		paths:    cfg.Paths,
		registry: cfg.Registry,
		log:      logging.With().Str("component", "federation").Logger(),
		audit:    logging.NewSecurityLogger(),
	}
}

// Init builds the provider set and registers the change observer. It
// is idempotent: a second call on a live federation is a no-op.
func (f *Federation) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return nil
	}

	f.internal = NewInternalProvider(f.store, f.paths)

	providers, order, err := f.buildProviders(ctx)
	if err != nil {
		return err
	}
	f.providers = providers
	f.order = order

	sub, err := f.store.Subscribe(f.paths.Providers, []string{repository.TypeProvider})
	if err != nil {
		return fmt.Errorf("subscribe to provider definitions: %w", err)
	}
	f.sub = sub
	f.initialized = true

	f.log.Info().Int("providers", len(order)).Msg("federation initialized")
	return nil
}

// Close removes every provider and cancels the change observer. The
// federation must be re-initialized before further use.
func (f *Federation) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return nil
	}
	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
	}
	for _, rp := range f.providers {
		rp.provider.Remove()
	}
	f.internal.Remove()
	f.providers = nil
	f.order = nil
	f.initialized = false
	return nil
}

// Serve watches provider-definition changes and rebuilds the provider
// set on every event. It blocks until the context is canceled or the
// subscription ends, making the federation a supervisable service.
func (f *Federation) Serve(ctx context.Context) error {
	f.mu.RLock()
	if !f.initialized {
		f.mu.RUnlock()
		panic("federation: Serve before Init")
	}
	events := f.sub.Events()
	f.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			f.log.Info().
				Str("path", ev.Path).
				Msg("provider definition changed, rebuilding providers")
			if err := f.rebuild(ctx); err != nil {
				f.log.Error().Err(err).Msg("provider rebuild failed")
			}
		}
	}
}

// Generation returns the rebuild counter, incremented on every swap.
func (f *Federation) Generation() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.generation
}

// Internal exposes the store-resident provider for bootstrap and
// account administration.
func (f *Federation) Internal() *InternalProvider {
	f.requireInit()
	return f.internal
}

// rebuild recreates the whole provider set: the new set is built
// completely, swapped in under the lock, and only then are the old
// providers removed. No incremental diffing.
func (f *Federation) rebuild(ctx context.Context) error {
	f.mu.RLock()
	if !f.initialized {
		f.mu.RUnlock()
		return nil
	}
	f.mu.RUnlock()

	providers, order, err := f.buildProviders(ctx)
	if err != nil {
		return err
	}

	f.mu.Lock()
	old := f.providers
	f.providers = providers
	f.order = order
	f.generation++
	f.mu.Unlock()

	for _, rp := range old {
		rp.provider.Remove()
	}
	return nil
}

// buildProviders instantiates one provider per definition node. A
// definition that cannot be instantiated is logged and skipped.
func (f *Federation) buildProviders(ctx context.Context) (map[string]*runtimeProvider, []string, error) {
	defs, err := f.store.Query(ctx, repository.QuerySpec{
		Type:  repository.TypeProvider,
		Scope: f.paths.Providers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query provider definitions: %w", err)
	}

	providers := make(map[string]*runtimeProvider, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		name := def.Name()
		typeName, ok := def.FirstString(repository.PropProviderType)
		if !ok {
			f.log.Error().Str("provider", name).Msg("provider definition lacks a type, skipped")
			continue
		}

		params := make(map[string]string)
		for prop := range def.Properties {
			if prop == repository.PropProviderType {
				continue
			}
			if v, found := def.FirstString(prop); found {
				params[prop] = v
			}
		}

		provider, err := f.registry.Create(ProviderConfig{
			Name:   name,
			Type:   typeName,
			Params: params,
			Store:  f.store,
			Paths:  f.paths,
		})
		if err != nil {
			f.log.Error().Err(err).Str("provider", name).Msg("provider instantiation failed, skipped")
			continue
		}

		providers[name] = &runtimeProvider{
			provider: provider,
			users:    newBreakerUserManager(name, provider.Users()),
		}
		order = append(order, name)
	}
	return providers, order, nil
}

func (f *Federation) requireInit() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.initialized {
		panic("federation: used before Init")
	}
}

// Authenticate verifies the credentials against the provider set. It
// reports only success or failure: every store error on this path is
// logged and surfaces as denial (fail-closed).
func (f *Federation) Authenticate(ctx context.Context, userID, password string) bool {
	f.requireInit()

	f.mu.RLock()
	providers := f.providers
	order := f.order
	internal := f.internal
	f.mu.RUnlock()

	user, err := internal.GetUser(ctx, userID)
	switch {
	case err == nil:
		// Known user: route to its declared provider, or internal.
		providerName := user.Provider
		if providerName == "" || providerName == ProviderInternal {
			ok, err := internal.Authenticate(ctx, userID, password)
			if err != nil {
				f.log.Error().Err(err).Str("user", logging.SanitizeUserID(userID)).
					Msg("internal authentication error")
				return false
			}
			if ok {
				f.audit.LogLoginSuccess(userID, ProviderInternal)
			}
			return ok
		}

		rp, registered := providers[providerName]
		if !registered {
			f.log.Error().Str("provider", providerName).
				Str("user", logging.SanitizeUserID(userID)).
				Msg("user routes to unregistered provider")
			return false
		}
		return f.authenticateExternal(ctx, rp, userID, password)

	case errors.Is(err, ErrUserNotFound):
		// Unknown user: offer to every provider in configured order.
		for _, name := range order {
			rp := providers[name]
			ok, err := rp.users.Authenticate(ctx, userID, password)
			if err != nil {
				f.log.Warn().Err(err).Str("provider", name).Msg("provider authentication error")
				continue
			}
			if ok {
				return f.finishExternal(ctx, rp, userID)
			}
		}
		return false

	default:
		f.log.Error().Err(err).Msg("user lookup failed during authentication")
		return false
	}
}

// authenticateExternal runs the password check on one external
// provider and, on success, the external completion path.
func (f *Federation) authenticateExternal(ctx context.Context, rp *runtimeProvider, userID, password string) bool {
	ok, err := rp.users.Authenticate(ctx, userID, password)
	if err != nil {
		f.log.Warn().Err(err).Str("provider", rp.provider.Name()).
			Msg("provider authentication error")
		return false
	}
	if !ok {
		return false
	}
	return f.finishExternal(ctx, rp, userID)
}

// finishExternal completes a successful external login: active check,
// user and membership synchronization into the store, provider sync.
func (f *Federation) finishExternal(ctx context.Context, rp *runtimeProvider, userID string) bool {
	name := rp.provider.Name()

	user, err := rp.users.GetUser(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Str("provider", name).Msg("post-login user lookup failed")
		return false
	}
	if !user.Active {
		f.audit.LogLoginFailure(userID, name, "account inactive")
		return false
	}

	synced := *user
	synced.Provider = name
	if err := f.internal.syncExternalUser(ctx, &synced, time.Now()); err != nil {
		f.log.Error().Err(err).Str("provider", name).Msg("user synchronization failed")
		return false
	}

	groups, err := rp.provider.Groups().Memberships(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Str("provider", name).Msg("membership lookup failed")
		return false
	}
	for _, group := range groups {
		if err := f.internal.addMembership(ctx, group, userID); err != nil {
			f.log.Error().Err(err).Str("group", group).Msg("membership synchronization failed")
			return false
		}
	}

	if err := f.store.Save(ctx); err != nil {
		f.log.Error().Err(err).Msg("persisting synchronized account failed")
		return false
	}

	if err := rp.provider.Sync(ctx); err != nil {
		// The provider's own reconciliation is best effort.
		f.log.Warn().Err(err).Str("provider", name).Msg("provider sync hook failed")
	}

	f.audit.LogLoginSuccess(userID, name)
	return true
}

// Memberships returns the store-resident group memberships of a user.
func (f *Federation) Memberships(ctx context.Context, userID string) ([]string, error) {
	f.requireInit()
	return f.internal.Memberships(ctx, userID)
}
