// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package auth is the authentication orchestrator. It turns credentials
// into a committed principal set in a single pass: impersonation, then
// anonymous, then password verification against the provider federation,
// and only after one of those branches has succeeded does principal
// assembly run. A failed attempt never leaks a partial set.
//
// The package also carries the session layer (durable principal sets
// keyed by session id) and the token layer (HS256 bearer tokens naming
// a session) consumed by the HTTP API.
package auth
