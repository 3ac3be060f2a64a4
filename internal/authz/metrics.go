// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts permission decisions by requested permissions
	// and outcome.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repogate_authz_decisions_total",
			Help: "Total number of permission decisions",
		},
		[]string{"permissions", "decision"},
	)

	// DeniedTotal specifically tracks denials for alerting.
	DeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repogate_authz_denied_total",
			Help: "Total number of permission denials (for alerting)",
		},
		[]string{"permissions"},
	)

	// CacheHitsTotal counts decision cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_authz_cache_hits_total",
			Help: "Total number of decision cache hits",
		},
	)

	// CacheMissesTotal counts decision cache misses on read checks.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_authz_cache_misses_total",
			Help: "Total number of decision cache misses",
		},
	)

	// CacheEvictionsTotal counts capacity evictions from the decision cache.
	CacheEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_authz_cache_evictions_total",
			Help: "Total number of decision cache capacity evictions",
		},
	)

	// ErrorsTotal counts evaluation errors (store failures, not denials).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repogate_authz_errors_total",
			Help: "Total number of permission evaluation errors",
		},
		[]string{"error_type"},
	)
)

// RecordDecision records one permission decision.
func RecordDecision(perms string, granted bool) {
	decision := "denied"
	if granted {
		decision = "granted"
	}
	DecisionsTotal.WithLabelValues(perms, decision).Inc()
	if !granted {
		DeniedTotal.WithLabelValues(perms).Inc()
	}
}

// RecordCacheHit records a decision cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a decision cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheEviction records a capacity eviction.
func RecordCacheEviction() {
	CacheEvictionsTotal.Inc()
}

// RecordError records an evaluation error by type.
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}
