// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/carteret/repogate/internal/logging"
)

// RootID is the identifier of the repository root node.
const RootID ItemID = "root"

// Key prefixes for BadgerDB storage.
const (
	nodeKeyPrefix = "node:"
	pathKeyPrefix = "path:"
)

// Options configures a BadgerStore.
type Options struct {
	// Dir is the storage directory. Ignored in in-memory mode.
	Dir string

	// InMemory keeps all data in memory; used by tests and ephemeral
	// deployments.
	InMemory bool
}

// BadgerStore is a content store backed by BadgerDB. One JSON document per
// node plus a path index; change events fan out to in-process subscribers.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool

	mu     sync.Mutex
	subs   map[*storeSubscription]struct{}
	closed bool
}

// Open opens (or creates) a store and guarantees the root node exists.
func Open(opts Options) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{
		db:       db,
		inMemory: opts.InMemory,
		subs:     make(map[*storeSubscription]struct{}),
	}

	err = db.Update(func(txn *badger.Txn) error {
		if _, err := lookupPath(txn, "/"); err == nil {
			return nil
		} else if !errors.Is(err, ErrItemNotFound) {
			return err
		}
		root := &NodeState{ID: RootID, Path: "/", Type: TypeRoot}
		return putNode(txn, root)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize root node: %w", err)
	}

	return s, nil
}

func nodeKey(id ItemID) []byte { return []byte(nodeKeyPrefix + string(id)) }
func pathKey(path string) []byte {
	return []byte(pathKeyPrefix + path)
}

func putNode(txn *badger.Txn, n *NodeState) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", n.Path, err)
	}
	if err := txn.Set(nodeKey(n.ID), data); err != nil {
		return fmt.Errorf("set node: %w", err)
	}
	if err := txn.Set(pathKey(n.Path), []byte(n.ID)); err != nil {
		return fmt.Errorf("set path index: %w", err)
	}
	return nil
}

func getNode(txn *badger.Txn, id ItemID) (*NodeState, error) {
	item, err := txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	var node NodeState
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &node)
	}); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &node, nil
}

func lookupPath(txn *badger.Txn, path string) (ItemID, error) {
	item, err := txn.Get(pathKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrItemNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup path %s: %w", path, err)
	}
	var id ItemID
	if err := item.Value(func(val []byte) error {
		id = ItemID(val)
		return nil
	}); err != nil {
		return "", err
	}
	return id, nil
}

// ResolveItem implements Store.
func (s *BadgerStore) ResolveItem(ctx context.Context, id ItemID) (*Item, error) {
	if nodeID, property, ok := id.SplitProperty(); ok {
		// Property identifiers resolve without touching the parent; the
		// evaluator decides what an unresolvable parent means.
		return &Item{Property: &PropertyState{ID: id, Name: property, Parent: nodeID}}, nil
	}

	var node *NodeState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Item{Node: node}, nil
}

// ResolvePath implements Store.
func (s *BadgerStore) ResolvePath(ctx context.Context, path string) (*NodeState, error) {
	var node *NodeState
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := lookupPath(txn, path)
		if err != nil {
			return err
		}
		node, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Children implements Store.
func (s *BadgerStore) Children(ctx context.Context, id ItemID) ([]*NodeState, error) {
	var children []*NodeState
	err := s.db.View(func(txn *badger.Txn) error {
		return scanNodes(txn, func(n *NodeState) {
			if n.Parent == id {
				children = append(children, n)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	return children, nil
}

// Query implements Store.
func (s *BadgerStore) Query(ctx context.Context, spec QuerySpec) ([]*NodeState, error) {
	var matches []*NodeState
	err := s.db.View(func(txn *badger.Txn) error {
		return scanNodes(txn, func(n *NodeState) {
			if matchesSpec(n, spec) {
				matches = append(matches, n)
			}
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

func scanNodes(txn *badger.Txn, visit func(*NodeState)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(nodeKeyPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var node NodeState
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		})
		if err != nil {
			return fmt.Errorf("decode node during scan: %w", err)
		}
		visit(&node)
	}
	return nil
}

func matchesSpec(n *NodeState, spec QuerySpec) bool {
	if spec.Type != "" && n.Type != spec.Type {
		return false
	}
	if !inScope(n.Path, spec.Scope) {
		return false
	}
	if spec.HasValue != nil {
		found := false
		for _, v := range n.StringValues(spec.HasValue.Property) {
			if v == spec.HasValue.Value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func inScope(path, scope string) bool {
	if scope == "" || scope == "/" {
		return true
	}
	return path == scope || strings.HasPrefix(path, scope+"/")
}

// EnsureNode implements Store. Missing ancestors are created as
// unstructured nodes; events fire for every node created.
func (s *BadgerStore) EnsureNode(ctx context.Context, path, nodeType string) (*NodeState, error) {
	if !strings.HasPrefix(path, "/") || path != "/" && strings.HasSuffix(path, "/") {
		return nil, fmt.Errorf("invalid node path %q", path)
	}

	var result *NodeState
	var created []*NodeState

	err := s.db.Update(func(txn *badger.Txn) error {
		created = created[:0]
		if id, err := lookupPath(txn, path); err == nil {
			node, err := getNode(txn, id)
			if err != nil {
				return err
			}
			result = node
			return nil
		} else if !errors.Is(err, ErrItemNotFound) {
			return err
		}

		segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
		parentID := RootID
		current := ""
		for i, segment := range segments {
			if segment == "" {
				return fmt.Errorf("invalid node path %q", path)
			}
			current += "/" + segment
			if id, err := lookupPath(txn, current); err == nil {
				parentID = id
				continue
			} else if !errors.Is(err, ErrItemNotFound) {
				return err
			}

			t := TypeUnstructured
			if i == len(segments)-1 {
				t = nodeType
			}
			node := &NodeState{
				ID:     ItemID(uuid.NewString()),
				Path:   current,
				Type:   t,
				Parent: parentID,
			}
			if err := putNode(txn, node); err != nil {
				return err
			}
			created = append(created, node)
			parentID = node.ID
			result = node
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, node := range created {
		s.emit(Event{Type: EventNodeAdded, ID: node.ID, Path: node.Path, NodeType: node.Type})
	}
	return result, nil
}

// SetProperty implements Store.
func (s *BadgerStore) SetProperty(ctx context.Context, id ItemID, name string, values ...Value) error {
	var changed *NodeState
	err := s.db.Update(func(txn *badger.Txn) error {
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}
		if node.Properties == nil {
			node.Properties = make(map[string][]Value)
		}
		if len(values) == 0 {
			delete(node.Properties, name)
		} else {
			node.Properties[name] = values
		}
		changed = node
		return putNode(txn, node)
	})
	if err != nil {
		return err
	}

	s.emit(Event{Type: EventNodeChanged, ID: changed.ID, Path: changed.Path, NodeType: changed.Type})
	return nil
}

// RemoveNode implements Store. The whole subtree goes with the node.
func (s *BadgerStore) RemoveNode(ctx context.Context, id ItemID) error {
	var removed []*NodeState

	err := s.db.Update(func(txn *badger.Txn) error {
		removed = removed[:0]
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return fmt.Errorf("cannot remove root node")
		}

		var subtree []*NodeState
		if err := scanNodes(txn, func(n *NodeState) {
			if n.Path == node.Path || strings.HasPrefix(n.Path, node.Path+"/") {
				subtree = append(subtree, n)
			}
		}); err != nil {
			return err
		}

		for _, n := range subtree {
			if err := txn.Delete(nodeKey(n.ID)); err != nil {
				return fmt.Errorf("delete node %s: %w", n.Path, err)
			}
			if err := txn.Delete(pathKey(n.Path)); err != nil {
				return fmt.Errorf("delete path index %s: %w", n.Path, err)
			}
		}
		removed = subtree
		return nil
	})
	if err != nil {
		return err
	}

	for _, node := range removed {
		s.emit(Event{Type: EventNodeRemoved, ID: node.ID, Path: node.Path, NodeType: node.Type})
	}
	return nil
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context) error {
	if s.inMemory {
		return nil
	}
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for sub := range s.subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	s.subs = make(map[*storeSubscription]struct{})
	s.mu.Unlock()

	return s.db.Close()
}

// storeSubscription is one registered event consumer.
type storeSubscription struct {
	store  *BadgerStore
	prefix string
	types  map[string]struct{}
	ch     chan Event
	once   sync.Once
}

func (sub *storeSubscription) Events() <-chan Event { return sub.ch }

func (sub *storeSubscription) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	if _, ok := sub.store.subs[sub]; !ok {
		return
	}
	delete(sub.store.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}

// Subscribe implements Store.
func (s *BadgerStore) Subscribe(pathPrefix string, types []string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	sub := &storeSubscription{
		store:  s,
		prefix: pathPrefix,
		ch:     make(chan Event, 64),
	}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}
	s.subs[sub] = struct{}{}
	return sub, nil
}

// emit delivers an event to matching subscribers without blocking; a full
// subscriber drops the event.
func (s *BadgerStore) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !inScope(ev.Path, sub.prefix) {
			continue
		}
		if sub.types != nil {
			if _, ok := sub.types[ev.NodeType]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			logging.Warn().
				Str("path", ev.Path).
				Str("prefix", sub.prefix).
				Msg("Dropping change event for slow subscriber")
		}
	}
}
