// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package repository

// Namespaces of the content model.
const (
	// NSStore holds the structural base types.
	NSStore = "store"

	// NSContent holds the document content model.
	NSContent = "content"

	// NSSecurity holds the security configuration model.
	NSSecurity = "security"

	// NSWorkflow holds workflow configuration. Anonymous sessions are
	// denied access to this namespace outright.
	NSWorkflow = "workflow"
)

// Structural node types.
const (
	TypeRoot         = "store:root"
	TypeUnstructured = "store:unstructured"
	TypeFolder       = "store:folder"
)

// Content-model node types consulted by the permission evaluator's
// type shortcut table.
const (
	TypeFacetSearch = "content:facetsearch"
	TypeFacetSelect = "content:facetselect"
	TypeMirror      = "content:mirror"
	TypeHandle      = "content:handle"
	TypeDocument    = "content:document"
	TypePlugin      = "content:pluginconfig"
	TypeApplication = "content:application"
	TypePage        = "content:page"
	TypeSubSearch   = "content:subsearch"
	TypeFacetResult = "content:facetresult"
)

// Security configuration node types.
const (
	TypeUser       = "security:user"
	TypeGroup      = "security:group"
	TypeRole       = "security:role"
	TypeDomain     = "security:domain"
	TypeDomainRule = "security:domainrule"
	TypeFacetRule  = "security:facetrule"
	TypeAuthRole   = "security:authrole"
	TypeProvider   = "security:provider"
)

// Security configuration property names.
const (
	// User node properties.
	PropPassword  = "security:password"
	PropActive    = "security:active"
	PropProvider  = "security:securityprovider"
	PropLastLogin = "security:lastlogin"

	// Group node properties.
	PropMembers = "security:members"

	// Role node properties; absent means the bit is unset, not an error.
	PropRead   = "security:read"
	PropWrite  = "security:write"
	PropRemove = "security:remove"

	// Auth-role record properties.
	PropRole   = "security:role"
	PropUsers  = "security:users"
	PropGroups = "security:groups"

	// Facet rule properties.
	PropFacet     = "security:facet"
	PropValue     = "security:value"
	PropFacetType = "security:type"
	PropEquals    = "security:equals"
	PropFilter    = "security:filter"

	// Provider definition properties.
	PropProviderType = "security:classname"
)
