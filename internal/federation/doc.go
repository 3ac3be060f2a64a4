// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package federation manages the set of security providers and routes
// authentication between them.
//
// A security provider bundles a user manager and a group manager (plus
// an optional role manager) behind one name. The "internal" provider
// reads accounts straight from the content store; external providers
// front other systems and are synchronized back into the store on
// successful login.
//
// # Lifecycle
//
// The federation is constructed once, explicitly initialized with
// Init, and torn down with Close. Init reads every provider definition
// under the configured providers path and instantiates a runtime
// provider per definition through the factory registry; a definition
// that cannot be instantiated is logged and skipped, it never aborts
// initialization. Serve watches the providers subtree and rebuilds the
// whole provider set on any definition change: the new set is built
// completely, then swapped in under the lock, then the old providers
// are removed. A concurrent Authenticate sees the old set or the new
// set, never a mix.
//
// Using an uninitialized federation is a programming error and panics.
//
// # Authentication
//
// Authenticate reports only success or failure. Dispatch order:
//
//  1. Look the user up in the internal provider.
//  2. A known user routes to its declared provider, or to internal
//     when it declares none. An unknown declared provider denies.
//  3. An unknown user is offered to every provider in configured
//     order; the first success wins.
//
// Success through an external provider additionally verifies the
// account is active, synchronizes the user record, last-login
// timestamp, and group memberships into the content store, and invokes
// the provider's own Sync hook. Any store error on this path is
// logged and surfaces as a denial: authentication is fail-closed on
// repository errors, deliberately the opposite of the permission
// evaluator's fail-open stance.
//
// External user-manager calls run behind a sony/gobreaker circuit
// breaker; an open breaker surfaces as denial like any other failure.
package federation
