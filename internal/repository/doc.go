// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package repository defines the narrow contract the authorization and
// authentication engine consumes from the hierarchical content store, and
// a BadgerDB-backed implementation of it.
//
// The engine never owns the content store; it reads item state (type name,
// namespace, parent linkage, property values), runs typed queries for the
// security configuration subtree, subscribes to change notifications, and
// uses a deliberately small write surface to sync externally managed users
// and groups back into the store.
//
// # Identifiers
//
// An ItemID denotes either a node or a property. Property identifiers are
// formed as "<nodeID>#<propertyName>"; resolving one yields a
// PropertyState carrying the parent node id without asserting that the
// parent exists - virtual and not-yet-persisted properties are legal and
// the permission evaluator handles them explicitly.
//
// # Errors
//
// ErrItemNotFound is the only recoverable resolution failure; every other
// store error is propagated to the caller.
//
// # BadgerStore
//
// BadgerStore keeps one JSON document per node (goccy/go-json) plus a
// path index, supports an in-memory mode for tests, and fans change
// events out to in-process subscribers.
package repository
