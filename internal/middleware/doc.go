// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package middleware provides HTTP middleware shared by the decision
// API: request ID propagation, per-request structured logging, and
// Prometheus request instrumentation. All middleware uses the standard
// func(http.Handler) http.Handler shape so it composes with chi.
package middleware
