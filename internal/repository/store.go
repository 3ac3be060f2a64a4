// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package repository

import (
	"context"
	"errors"
)

// ErrItemNotFound reports that an identifier resolved to nothing. Callers
// recover from it locally; every other store error propagates.
var ErrItemNotFound = errors.New("item not found")

// QuerySpec is a typed node query. String query statements were rejected
// in favor of a closed spec: the engine only ever needs type, scope, and
// property-containment restrictions.
type QuerySpec struct {
	// Type restricts results to nodes of the given type; "" matches any.
	Type string

	// Scope restricts results to nodes at or below the given path.
	Scope string

	// HasValue, when set, restricts results to nodes carrying the value
	// among the property's string values.
	HasValue *ValueMatch
}

// ValueMatch is a property-contains-value restriction.
type ValueMatch struct {
	Property string
	Value    string
}

// EventType classifies a change notification.
type EventType int

const (
	// EventNodeAdded fires after a node is created.
	EventNodeAdded EventType = iota

	// EventNodeRemoved fires after a node is removed.
	EventNodeRemoved

	// EventNodeChanged fires after a node's properties change.
	EventNodeChanged
)

// Event is one change notification.
type Event struct {
	Type     EventType
	ID       ItemID
	Path     string
	NodeType string
}

// Subscription delivers change events until closed. Slow consumers drop
// events rather than block the writer.
type Subscription interface {
	// Events is the notification channel. It is closed when the
	// subscription or the store shuts down.
	Events() <-chan Event

	// Close cancels the subscription.
	Close()
}

// Store is the contract the engine consumes from the content store.
//
// The read side (resolution, queries, subscriptions) serves permission
// evaluation and security configuration loading. The write side is the
// narrow surface used to sync externally managed users and groups into
// the store; general content manipulation is out of scope.
type Store interface {
	// ResolveItem resolves a node or property identifier. It returns
	// ErrItemNotFound for unknown node ids. Property identifiers resolve
	// to a PropertyState without asserting the parent node exists.
	ResolveItem(ctx context.Context, id ItemID) (*Item, error)

	// ResolvePath resolves an absolute path to a node.
	ResolvePath(ctx context.Context, path string) (*NodeState, error)

	// Children returns the node's children sorted by path.
	Children(ctx context.Context, id ItemID) ([]*NodeState, error)

	// Query returns all nodes matching the spec, sorted by path.
	Query(ctx context.Context, spec QuerySpec) ([]*NodeState, error)

	// Subscribe registers for change events on nodes at or below
	// pathPrefix. An empty types slice matches every node type.
	Subscribe(pathPrefix string, types []string) (Subscription, error)

	// EnsureNode creates the node at path with the given type, creating
	// missing ancestors as unstructured nodes. An existing node is
	// returned unchanged.
	EnsureNode(ctx context.Context, path, nodeType string) (*NodeState, error)

	// SetProperty replaces the named property's values on a node.
	SetProperty(ctx context.Context, id ItemID, name string, values ...Value) error

	// RemoveNode removes a node and its subtree.
	RemoveNode(ctx context.Context, id ItemID) error

	// Save flushes pending writes to durable storage.
	Save(ctx context.Context) error

	// Close shuts the store down, ending all subscriptions.
	Close() error
}
