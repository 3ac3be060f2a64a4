// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package security

import (
	"fmt"

	"github.com/goccy/go-json"
)

// principalEnvelope is the wire form of one principal inside a persisted
// principal set. Only facet-auth principals carry a payload beyond the
// (kind, name) pair.
type principalEnvelope struct {
	Kind        Kind         `json:"kind"`
	Name        string       `json:"name,omitempty"`
	Rules       []DomainRule `json:"rules,omitempty"`
	Roles       []string     `json:"roles,omitempty"`
	Permissions Permissions  `json:"permissions,omitempty"`
}

// MarshalJSON encodes the set as a stable-ordered array of envelopes, for
// durable session storage.
func (s *PrincipalSet) MarshalJSON() ([]byte, error) {
	principals := s.All()
	envelopes := make([]principalEnvelope, 0, len(principals))
	for _, p := range principals {
		env := principalEnvelope{Kind: p.Kind(), Name: p.Name()}
		if fa, ok := p.(FacetAuthPrincipal); ok {
			env.Rules = fa.Rules
			env.Roles = fa.Roles
			env.Permissions = fa.Permissions
		}
		envelopes = append(envelopes, env)
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON restores a set persisted by MarshalJSON.
func (s *PrincipalSet) UnmarshalJSON(data []byte) error {
	var envelopes []principalEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return fmt.Errorf("decode principal set: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]Principal, len(envelopes))
	for _, env := range envelopes {
		var p Principal
		switch env.Kind {
		case KindUser:
			p = UserPrincipal{ID: env.Name}
		case KindGroup:
			p = GroupPrincipal{ID: env.Name}
		case KindAdmin:
			p = AdminPrincipal{}
		case KindSystem:
			p = SystemPrincipal{}
		case KindAnonymous:
			p = AnonymousPrincipal{}
		case KindFacetAuth:
			p = FacetAuthPrincipal{
				Domain:      env.Name,
				Rules:       env.Rules,
				Roles:       env.Roles,
				Permissions: env.Permissions,
			}
		default:
			return fmt.Errorf("unknown principal kind %q", env.Kind)
		}
		s.members[principalKey(p)] = p
	}
	return nil
}
