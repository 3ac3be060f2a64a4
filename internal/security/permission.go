// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package security

import (
	"fmt"
	"strings"
)

// Permissions is a bitmask of repository item permissions.
//
// The bit positions are part of the on-disk and diagnostic contract and
// must not be reordered: read=1, remove=2, write=4.
type Permissions uint8

const (
	// PermissionNone grants nothing. A role that cannot be resolved
	// contributes PermissionNone, never an error.
	PermissionNone Permissions = 0

	// PermissionRead allows reading an item and its properties.
	PermissionRead Permissions = 1

	// PermissionRemove allows removing an item.
	PermissionRemove Permissions = 2

	// PermissionWrite allows creating and modifying an item.
	PermissionWrite Permissions = 4

	// PermissionAll is the union of all permission bits.
	PermissionAll = PermissionRead | PermissionRemove | PermissionWrite
)

// Has reports whether p carries every bit of q.
func (p Permissions) Has(q Permissions) bool {
	return p&q == q
}

// HasAny reports whether p carries at least one bit of q.
func (p Permissions) HasAny(q Permissions) bool {
	return p&q != 0
}

// String renders the bitmask in the fixed diagnostic order read-remove-write,
// with '-' for unset bits: PermissionRead|PermissionWrite prints "r-w".
func (p Permissions) String() string {
	b := []byte{'-', '-', '-'}
	if p.Has(PermissionRead) {
		b[0] = 'r'
	}
	if p.Has(PermissionRemove) {
		b[1] = 'd'
	}
	if p.Has(PermissionWrite) {
		b[2] = 'w'
	}
	return string(b)
}

// ParsePermissions parses a comma-separated list of permission names
// ("read", "write", "remove") into a bitmask. Names are case-insensitive;
// an empty string parses to PermissionNone.
func ParsePermissions(s string) (Permissions, error) {
	p := PermissionNone
	if s == "" {
		return p, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "read":
			p |= PermissionRead
		case "write":
			p |= PermissionWrite
		case "remove":
			p |= PermissionRemove
		case "":
			// Tolerate stray commas.
		default:
			return PermissionNone, fmt.Errorf("unknown permission %q", name)
		}
	}
	return p, nil
}
