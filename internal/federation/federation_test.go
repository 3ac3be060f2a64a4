// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"testing"
	"time"

	"github.com/carteret/repogate/internal/repository"
	"github.com/carteret/repogate/internal/security"
)

func newTestStore(t *testing.T) *repository.BadgerStore {
	t.Helper()
	s, err := repository.Open(repository.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestFederation(t *testing.T, store repository.Store) *Federation {
	t.Helper()
	f := New(Config{Store: store})
	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// addStaticProvider writes a static provider definition into the store.
func addStaticProvider(t *testing.T, store repository.Store, name, usersJSON string) {
	t.Helper()
	ctx := context.Background()
	node, err := store.EnsureNode(ctx, DefaultPaths().Providers+"/"+name, repository.TypeProvider)
	if err != nil {
		t.Fatalf("EnsureNode(provider) error = %v", err)
	}
	if err := store.SetProperty(ctx, node.ID, repository.PropProviderType,
		repository.StringValue("static")); err != nil {
		t.Fatalf("SetProperty(type) error = %v", err)
	}
	if err := store.SetProperty(ctx, node.ID, "users",
		repository.StringValue(usersJSON)); err != nil {
		t.Fatalf("SetProperty(users) error = %v", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)

	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if f.Generation() != 0 {
		t.Errorf("generation = %d after repeated Init, want 0", f.Generation())
	}
}

func TestUninitializedUsePanics(t *testing.T) {
	f := New(Config{Store: newTestStore(t)})

	defer func() {
		if recover() == nil {
			t.Error("Authenticate on uninitialized federation must panic")
		}
	}()
	f.Authenticate(context.Background(), "alice", "secret")
}

func TestInternalAuthenticate(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx := context.Background()

	if err := f.Internal().EnsureUser(ctx, "alice", "s3cret", true); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	if err := f.Internal().EnsureUser(ctx, "bob", "hunter2", false); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	if !f.Authenticate(ctx, "alice", "s3cret") {
		t.Error("valid internal credentials must authenticate")
	}
	if f.Authenticate(ctx, "alice", "wrong") {
		t.Error("wrong password must be denied")
	}
	if f.Authenticate(ctx, "bob", "hunter2") {
		t.Error("inactive internal account must be denied")
	}
	if f.Authenticate(ctx, "nobody", "anything") {
		t.Error("unknown user with no providers must be denied")
	}
}

func TestExplicitProviderRouting(t *testing.T) {
	store := newTestStore(t)
	addStaticProvider(t, store, "ldap1",
		`[{"id":"carol","password":"pw","active":true,"groups":["editors"]}]`)
	f := newTestFederation(t, store)
	ctx := context.Background()

	// A store-resident account that declares its provider routes there
	// and never consults the internal password.
	if err := f.Internal().EnsureUser(ctx, "carol", "", true); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	node, err := store.ResolvePath(ctx, DefaultPaths().Users+"/carol")
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if err := store.SetProperty(ctx, node.ID, repository.PropProvider,
		repository.StringValue("ldap1")); err != nil {
		t.Fatalf("SetProperty(provider) error = %v", err)
	}

	if !f.Authenticate(ctx, "carol", "pw") {
		t.Error("declared-provider routing should authenticate against ldap1")
	}
	if f.Authenticate(ctx, "carol", "bad") {
		t.Error("wrong external password must be denied")
	}
}

func TestUnregisteredDeclaredProviderDenied(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx := context.Background()

	if err := f.Internal().EnsureUser(ctx, "dave", "", true); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	node, _ := store.ResolvePath(ctx, DefaultPaths().Users+"/dave")
	_ = store.SetProperty(ctx, node.ID, repository.PropProvider,
		repository.StringValue("no-such-provider"))

	if f.Authenticate(ctx, "dave", "anything") {
		t.Error("routing to an unregistered provider must deny")
	}
}

func TestUnknownUserIteratesProvidersAndSyncs(t *testing.T) {
	store := newTestStore(t)
	addStaticProvider(t, store, "ldap1",
		`[{"id":"erin","password":"pw","active":true,"groups":["writers","editors"]}]`)
	f := newTestFederation(t, store)
	ctx := context.Background()

	if !f.Authenticate(ctx, "erin", "pw") {
		t.Fatal("external account should authenticate through iteration")
	}

	// The account and its memberships are mirrored into the store.
	user, err := f.Internal().GetUser(ctx, "erin")
	if err != nil {
		t.Fatalf("GetUser() after sync error = %v", err)
	}
	if user.Provider != "ldap1" {
		t.Errorf("synced provider = %q, want ldap1", user.Provider)
	}
	if user.LastLogin.IsZero() {
		t.Error("synced account should carry a last-login timestamp")
	}

	groups, err := f.Memberships(ctx, "erin")
	if err != nil {
		t.Fatalf("Memberships() error = %v", err)
	}
	if len(groups) != 2 || groups[0] != "editors" || groups[1] != "writers" {
		t.Errorf("memberships = %v, want [editors writers]", groups)
	}
}

func TestInactiveExternalAccountDenied(t *testing.T) {
	store := newTestStore(t)
	addStaticProvider(t, store, "ldap1",
		`[{"id":"frank","password":"pw","active":false}]`)
	f := newTestFederation(t, store)
	ctx := context.Background()

	if f.Authenticate(ctx, "frank", "pw") {
		t.Error("inactive external account must be denied after password success")
	}
	// Denied logins must not be synchronized.
	if _, err := f.Internal().GetUser(ctx, "frank"); err == nil {
		t.Error("denied external account must not be mirrored into the store")
	}
}

func TestRebuildOnProviderDefinitionChange(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Serve(ctx)
	}()

	addStaticProvider(t, store, "ldap2",
		`[{"id":"grace","password":"pw","active":true}]`)

	// Definition writes arrive as separate events; the final rebuild
	// sees the complete definition.
	deadline := time.After(2 * time.Second)
	for !f.Authenticate(context.Background(), "grace", "pw") {
		select {
		case <-deadline:
			t.Fatal("provider rebuild did not happen after definition change")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if f.Generation() == 0 {
		t.Error("generation should advance on rebuild")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop on context cancel")
	}
}

func TestConcurrentAuthenticateDuringRebuild(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.Internal().EnsureUser(ctx, "alice", "s3cret", true); err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		_ = f.Serve(ctx)
	}()

	// Authentications run against whatever provider set is current;
	// they must keep succeeding across swaps.
	authDone := make(chan struct{})
	go func() {
		defer close(authDone)
		for i := 0; i < 50; i++ {
			if !f.Authenticate(context.Background(), "alice", "s3cret") {
				t.Error("internal authentication failed during rebuild")
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		addStaticProvider(t, store, "ext"+string(rune('a'+i)),
			`[{"id":"x","password":"pw","active":true}]`)
	}

	select {
	case <-authDone:
	case <-time.After(5 * time.Second):
		t.Fatal("authentication goroutine did not finish")
	}

	cancel()
	select {
	case <-serveDone:
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop on context cancel")
	}
}

func TestPermissionsForRole(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx := context.Background()

	if err := f.EnsureRole(ctx, security.Role{Name: "editor", Read: true, Write: true}); err != nil {
		t.Fatalf("EnsureRole() error = %v", err)
	}

	perms, err := f.PermissionsForRole(ctx, "editor")
	if err != nil {
		t.Fatalf("PermissionsForRole() error = %v", err)
	}
	want := security.PermissionRead | security.PermissionWrite
	if perms != want {
		t.Errorf("editor permissions = %s, want %s", perms, want)
	}

	// A missing role resolves to no permissions, never an error.
	perms, err = f.PermissionsForRole(ctx, "ghost")
	if err != nil {
		t.Fatalf("PermissionsForRole(ghost) error = %v", err)
	}
	if perms != security.PermissionNone {
		t.Errorf("missing role permissions = %s, want none", perms)
	}
	if ok, _ := f.HasRole(ctx, "ghost"); ok {
		t.Error("HasRole(ghost) = true, want false")
	}
}

func TestDomainsFor(t *testing.T) {
	store := newTestStore(t)
	f := newTestFederation(t, store)
	ctx := context.Background()
	paths := DefaultPaths()

	// Domain "newsroom": one rule matching published documents, role
	// grants to alice directly and to the editors group.
	domain, _ := store.EnsureNode(ctx, paths.Domains+"/newsroom", repository.TypeDomain)
	rule, _ := store.EnsureNode(ctx, paths.Domains+"/newsroom/published", repository.TypeDomainRule)
	facet, _ := store.EnsureNode(ctx, paths.Domains+"/newsroom/published/state", repository.TypeFacetRule)
	_ = store.SetProperty(ctx, facet.ID, repository.PropFacet, repository.StringValue("content:state"))
	_ = store.SetProperty(ctx, facet.ID, repository.PropValue, repository.StringValue("published"))
	_ = store.SetProperty(ctx, facet.ID, repository.PropEquals, repository.BoolValue(true))

	grant, _ := store.EnsureNode(ctx, paths.Domains+"/newsroom/editor-grant", repository.TypeAuthRole)
	_ = store.SetProperty(ctx, grant.ID, repository.PropRole, repository.StringValue("editor"))
	_ = store.SetProperty(ctx, grant.ID, repository.PropUsers, repository.StringValues("alice")...)
	_ = store.SetProperty(ctx, grant.ID, repository.PropGroups, repository.StringValues("editors")...)

	// Unrelated domain that grants nothing to alice.
	_, _ = store.EnsureNode(ctx, paths.Domains+"/archive", repository.TypeDomain)
	other, _ := store.EnsureNode(ctx, paths.Domains+"/archive/reader-grant", repository.TypeAuthRole)
	_ = store.SetProperty(ctx, other.ID, repository.PropRole, repository.StringValue("reader"))
	_ = store.SetProperty(ctx, other.ID, repository.PropUsers, repository.StringValues("zoe")...)

	_ = domain
	_ = rule

	byUser, err := f.DomainsFor(ctx, "alice", nil)
	if err != nil {
		t.Fatalf("DomainsFor(alice) error = %v", err)
	}
	if len(byUser) != 1 || byUser[0].Name != "newsroom" {
		t.Fatalf("DomainsFor(alice) = %v, want [newsroom]", byUser)
	}
	d := byUser[0]
	if len(d.Rules) != 1 || len(d.Rules[0].Facets) != 1 {
		t.Fatalf("domain rules = %+v, want one rule with one facet", d.Rules)
	}
	fr := d.Rules[0].Facets[0]
	if fr.Facet != "content:state" || fr.Value != "published" || !fr.Equals {
		t.Errorf("facet rule = %+v", fr)
	}
	if roles := d.RolesFor("alice", nil); len(roles) != 1 || roles[0] != "editor" {
		t.Errorf("RolesFor(alice) = %v, want [editor]", roles)
	}

	// Group membership reaches the same domain.
	byGroup, err := f.DomainsFor(ctx, "someone-else", []string{"editors"})
	if err != nil {
		t.Fatalf("DomainsFor(group) error = %v", err)
	}
	if len(byGroup) != 1 || byGroup[0].Name != "newsroom" {
		t.Errorf("DomainsFor(group) = %v, want [newsroom]", byGroup)
	}
}
