// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/security"
)

// stubStore serves canned nodes and counts resolutions so tests can
// observe cache behavior.
type stubStore struct {
	nodes    map[repository.ItemID]*repository.NodeState
	resolves int
	failWith error
}

func newStubStore(nodes ...*repository.NodeState) *stubStore {
	s := &stubStore{nodes: make(map[repository.ItemID]*repository.NodeState)}
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	return s
}

func (s *stubStore) ResolveItem(_ context.Context, id repository.ItemID) (*repository.Item, error) {
	s.resolves++
	if s.failWith != nil {
		return nil, s.failWith
	}
	if parent, name, ok := id.SplitProperty(); ok {
		return &repository.Item{Property: &repository.PropertyState{ID: id, Name: name, Parent: parent}}, nil
	}
	n, ok := s.nodes[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	return &repository.Item{Node: n}, nil
}

func (s *stubStore) ResolvePath(context.Context, string) (*repository.NodeState, error) {
	return nil, repository.ErrItemNotFound
}

func (s *stubStore) Children(context.Context, repository.ItemID) ([]*repository.NodeState, error) {
	return nil, nil
}

func (s *stubStore) Query(context.Context, repository.QuerySpec) ([]*repository.NodeState, error) {
	return nil, nil
}

func (s *stubStore) Subscribe(string, []string) (repository.Subscription, error) {
	return nil, errors.New("not supported")
}

func (s *stubStore) EnsureNode(context.Context, string, string) (*repository.NodeState, error) {
	return nil, errors.New("not supported")
}

func (s *stubStore) SetProperty(context.Context, repository.ItemID, string, ...repository.Value) error {
	return errors.New("not supported")
}

func (s *stubStore) RemoveNode(context.Context, repository.ItemID) error {
	return errors.New("not supported")
}

func (s *stubStore) Save(context.Context) error { return nil }
func (s *stubStore) Close() error               { return nil }

func testNode(id repository.ItemID, typ string, parent repository.ItemID, props map[string][]string) *repository.NodeState {
	n := &repository.NodeState{
		ID:         id,
		Path:       "/" + string(id),
		Type:       typ,
		Parent:     parent,
		Properties: make(map[string][]repository.Value),
	}
	for name, values := range props {
		n.Properties[name] = repository.StringValues(values...)
	}
	return n
}

// docGrant builds a facet-auth principal granting perms on documents
// whose content:state property equals the given value.
func docGrant(domain, state string, perms security.Permissions) security.FacetAuthPrincipal {
	return security.FacetAuthPrincipal{
		Domain: domain,
		Rules: []security.DomainRule{{
			Name:   "by-state",
			Facets: []security.FacetRule{{Facet: "content:state", Value: state, Equals: true}},
		}},
		Permissions: perms,
	}
}

func TestSystemAndAdminBypass(t *testing.T) {
	// The store fails outright; a bypass must never touch it.
	store := &stubStore{failWith: errors.New("store down")}

	for _, p := range []security.Principal{security.SystemPrincipal{}, security.AdminPrincipal{}} {
		ev := New(store, security.NewPrincipalSet(p), 0)
		granted, err := ev.IsGranted(context.Background(), "anything", security.PermissionAll)
		if err != nil {
			t.Fatalf("%s bypass error = %v", p.Kind(), err)
		}
		if !granted {
			t.Errorf("%s principal should bypass evaluation", p.Kind())
		}
		ev.Close()
	}
	if store.resolves != 0 {
		t.Errorf("bypass resolved %d items, want 0", store.resolves)
	}
}

func TestPropertyOfUnresolvableParentFailsOpen(t *testing.T) {
	store := newStubStore()
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()

	id := repository.PropertyID("ghost", "content:title")
	granted, err := ev.IsGranted(context.Background(), id, security.PermissionWrite)
	if err != nil {
		t.Fatalf("IsGranted() error = %v", err)
	}
	if !granted {
		t.Error("property of an unresolvable parent must fail open")
	}
}

func TestStructuralShortcuts(t *testing.T) {
	root := testNode("root", repository.TypeRoot, "", nil)
	root.Path = "/"
	store := newStubStore(
		root,
		testNode("u1", repository.TypeUnstructured, "root", nil),
		testNode("f1", repository.TypeFolder, "root", nil),
	)
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()
	ctx := context.Background()

	for _, id := range []repository.ItemID{"u1", "f1"} {
		granted, err := ev.IsGranted(ctx, id, security.PermissionAll)
		if err != nil {
			t.Fatalf("IsGranted(%s) error = %v", id, err)
		}
		if !granted {
			t.Errorf("node %s should be granted unconditionally", id)
		}
	}

	granted, err := ev.IsGranted(ctx, "root", security.PermissionRead)
	if err != nil {
		t.Fatalf("IsGranted(root, read) error = %v", err)
	}
	if !granted {
		t.Error("root must be readable through the shortcut")
	}

	granted, err = ev.IsGranted(ctx, "root", security.PermissionWrite)
	if err != nil {
		t.Fatalf("IsGranted(root, write) error = %v", err)
	}
	if granted {
		t.Error("root must not be writable through the shortcut")
	}
}

func TestAnonymousDeniedWorkflowNamespace(t *testing.T) {
	store := newStubStore(
		testNode("wf", "workflow:config", "root", nil),
		testNode("u1", repository.TypeUnstructured, "root", nil),
	)
	ev := New(store, security.NewPrincipalSet(security.AnonymousPrincipal{}), 0)
	defer ev.Close()
	ctx := context.Background()

	granted, err := ev.IsGranted(ctx, "wf", security.PermissionRead)
	if err != nil {
		t.Fatalf("IsGranted(wf) error = %v", err)
	}
	if granted {
		t.Error("anonymous must be denied workflow nodes")
	}

	granted, err = ev.IsGranted(ctx, "u1", security.PermissionRead)
	if err != nil {
		t.Fatalf("IsGranted(u1) error = %v", err)
	}
	if !granted {
		t.Error("anonymous still reads unstructured nodes")
	}
}

func TestTypeGrantTable(t *testing.T) {
	store := newStubStore(
		testNode("search", repository.TypeFacetSearch, "root", nil),
		testNode("handle", repository.TypeHandle, "root", nil),
		testNode("plugin", repository.TypePlugin, "root", nil),
		testNode("page", repository.TypePage, "root", nil),
	)
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()
	ctx := context.Background()

	tests := []struct {
		id    repository.ItemID
		perms security.Permissions
		want  bool
	}{
		{"search", security.PermissionAll, true},
		{"handle", security.PermissionRead | security.PermissionWrite, true},
		{"handle", security.PermissionRemove, false},
		{"plugin", security.PermissionRead, true},
		{"plugin", security.PermissionWrite, false},
		{"page", security.PermissionRead, true},
		{"page", security.PermissionRemove, false},
	}
	for _, tt := range tests {
		granted, err := ev.IsGranted(ctx, tt.id, tt.perms)
		if err != nil {
			t.Fatalf("IsGranted(%s, %s) error = %v", tt.id, tt.perms, err)
		}
		if granted != tt.want {
			t.Errorf("IsGranted(%s, %s) = %v, want %v", tt.id, tt.perms, granted, tt.want)
		}
	}
}

func TestSubSearchClimbsToParentType(t *testing.T) {
	store := newStubStore(
		testNode("select", repository.TypeFacetSelect, "root", nil),
		testNode("sub", repository.TypeSubSearch, "select", nil),
		testNode("orphan-sub", repository.TypeSubSearch, "missing-parent", nil),
		testNode("doc", repository.TypeDocument, "root", nil),
		testNode("result", repository.TypeFacetResult, "doc", nil),
	)
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()
	ctx := context.Background()

	// Child of a facet-select inherits its parent's full grant.
	granted, err := ev.IsGranted(ctx, "sub", security.PermissionWrite)
	if err != nil {
		t.Fatalf("IsGranted(sub, write) error = %v", err)
	}
	if !granted {
		t.Error("subsearch under facetselect should inherit write")
	}

	// A missing or non-definition parent leaves the node read-only.
	for _, id := range []repository.ItemID{"orphan-sub", "result"} {
		granted, err = ev.IsGranted(ctx, id, security.PermissionWrite)
		if err != nil {
			t.Fatalf("IsGranted(%s, write) error = %v", id, err)
		}
		if granted {
			t.Errorf("node %s should stay read-only", id)
		}
		granted, err = ev.IsGranted(ctx, id, security.PermissionRead)
		if err != nil {
			t.Fatalf("IsGranted(%s, read) error = %v", id, err)
		}
		if !granted {
			t.Errorf("node %s should stay readable", id)
		}
	}
}

func TestFacetAuthORAcrossPrincipals(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	// First grant matches the item but cannot satisfy write; second grant
	// carries write but its rule does not match; third matches with write.
	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("readers", "published", security.PermissionRead),
		docGrant("draft-editors", "draft", security.PermissionAll),
		docGrant("editors", "published", security.PermissionRead|security.PermissionWrite),
	)
	ev := New(store, principals, 0)
	defer ev.Close()

	granted, err := ev.IsGranted(context.Background(), "doc", security.PermissionWrite)
	if err != nil {
		t.Fatalf("IsGranted() error = %v", err)
	}
	if !granted {
		t.Error("any single matching grant must suffice (OR across principals)")
	}
}

func TestFacetAuthBitmaskPrecondition(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("readers", "published", security.PermissionRead),
	)
	ev := New(store, principals, 0)
	defer ev.Close()
	ctx := context.Background()

	granted, err := ev.IsGranted(ctx, "doc", security.PermissionRead)
	if err != nil {
		t.Fatalf("IsGranted(read) error = %v", err)
	}
	if !granted {
		t.Error("read should be granted by the matching reader grant")
	}

	granted, err = ev.IsGranted(ctx, "doc", security.PermissionRead|security.PermissionWrite)
	if err != nil {
		t.Fatalf("IsGranted(read|write) error = %v", err)
	}
	if granted {
		t.Error("a grant whose bitmask lacks write must not grant read|write")
	}
}

func TestNoFacetPrincipalsDenied(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()

	granted, err := ev.IsGranted(context.Background(), "doc", security.PermissionRead)
	if err != nil {
		t.Fatalf("IsGranted() error = %v", err)
	}
	if granted {
		t.Error("an identity without facet grants must be denied past the shortcuts")
	}
}

func TestReadCacheCoherence(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("editors", "published", security.PermissionAll),
	)
	ev := New(store, principals, 0)
	defer ev.Close()
	ctx := context.Background()

	// First read resolves and caches; second read is served from cache.
	if _, err := ev.IsGranted(ctx, "doc", security.PermissionRead); err != nil {
		t.Fatal(err)
	}
	after := store.resolves
	if _, err := ev.IsGranted(ctx, "doc", security.PermissionRead); err != nil {
		t.Fatal(err)
	}
	if store.resolves != after {
		t.Errorf("second read resolved again (%d -> %d), want cache hit", after, store.resolves)
	}

	// A write check evicts the entry; the next read resolves again.
	if _, err := ev.IsGranted(ctx, "doc", security.PermissionWrite); err != nil {
		t.Fatal(err)
	}
	before := store.resolves
	if _, err := ev.IsGranted(ctx, "doc", security.PermissionRead); err != nil {
		t.Fatal(err)
	}
	if store.resolves == before {
		t.Error("read after a write check should resolve again, entry was evicted")
	}
}

func TestCombinedReadWriteDoesNotPopulateCache(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("editors", "published", security.PermissionAll),
	)
	ev := New(store, principals, 0)
	defer ev.Close()
	ctx := context.Background()

	if _, err := ev.IsGranted(ctx, "doc", security.PermissionRead|security.PermissionWrite); err != nil {
		t.Fatal(err)
	}
	if ev.cache.len() != 0 {
		t.Error("only pure read checks may populate the cache")
	}
}

func TestItemNotFoundFailsOpen(t *testing.T) {
	store := newStubStore()
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()
	ctx := context.Background()

	for _, perms := range []security.Permissions{
		security.PermissionRead,
		security.PermissionWrite,
		security.PermissionRemove,
	} {
		granted, err := ev.IsGranted(ctx, "gone", perms)
		if err != nil {
			t.Fatalf("IsGranted(gone, %s) error = %v", perms, err)
		}
		if !granted {
			t.Errorf("unresolvable item must fail open for %s", perms)
		}
	}
}

func TestRemoveOfMissingItemDropsCacheEntry(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("editors", "published", security.PermissionAll),
	)
	ev := New(store, principals, 0)
	defer ev.Close()
	ctx := context.Background()

	if _, err := ev.IsGranted(ctx, "doc", security.PermissionRead); err != nil {
		t.Fatal(err)
	}
	if ev.cache.len() != 1 {
		t.Fatalf("cache len = %d, want 1", ev.cache.len())
	}

	// The item disappears; a remove check fails open and drops the entry.
	delete(store.nodes, "doc")
	granted, err := ev.IsGranted(ctx, "doc", security.PermissionRemove)
	if err != nil {
		t.Fatal(err)
	}
	if !granted {
		t.Error("remove of a missing item must fail open")
	}
	if ev.cache.len() != 0 {
		t.Error("remove of a missing item must drop the cache entry")
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	store := &stubStore{failWith: errors.New("store down")}
	ev := New(store, security.NewPrincipalSet(security.UserPrincipal{ID: "alice"}), 0)
	defer ev.Close()

	_, err := ev.IsGranted(context.Background(), "doc", security.PermissionRead)
	if err == nil {
		t.Fatal("store failures other than not-found must propagate")
	}
	if errors.Is(err, repository.ErrItemNotFound) {
		t.Error("error must not be ErrItemNotFound")
	}
}

func TestCheckPermission(t *testing.T) {
	doc := testNode("doc", repository.TypeDocument, "root",
		map[string][]string{"content:state": {"published"}})
	store := newStubStore(doc)

	principals := security.NewPrincipalSet(
		security.UserPrincipal{ID: "alice"},
		docGrant("readers", "published", security.PermissionRead),
	)
	ev := New(store, principals, 0)
	defer ev.Close()
	ctx := context.Background()

	if err := ev.CheckPermission(ctx, "doc", security.PermissionRead); err != nil {
		t.Errorf("CheckPermission(read) = %v, want nil", err)
	}
	err := ev.CheckPermission(ctx, "doc", security.PermissionWrite)
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("CheckPermission(write) = %v, want ErrAccessDenied", err)
	}
}
