// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package security

// Role is a named permission bitmask read from configuration. The three
// booleans mirror the role node's properties; an absent property leaves
// the corresponding bit unset.
type Role struct {
	Name   string
	Read   bool
	Write  bool
	Remove bool
}

// Permissions resolves the role to its bitmask.
func (r Role) Permissions() Permissions {
	p := PermissionNone
	if r.Read {
		p |= PermissionRead
	}
	if r.Write {
		p |= PermissionWrite
	}
	if r.Remove {
		p |= PermissionRemove
	}
	return p
}
