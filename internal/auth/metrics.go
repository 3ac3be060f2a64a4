// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginsTotal counts login attempts by branch and outcome.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repogate_auth_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"branch", "outcome"},
	)

	// LogoutsTotal counts logouts.
	LogoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_auth_logouts_total",
			Help: "Total number of logouts",
		},
	)

	// SessionsCreatedTotal counts created sessions.
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_auth_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	// SessionsExpiredTotal counts sessions removed by expiry cleanup.
	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_auth_sessions_expired_total",
			Help: "Total number of sessions removed by expiry cleanup",
		},
	)

	// TokensIssuedTotal counts issued bearer tokens.
	TokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_auth_tokens_issued_total",
			Help: "Total number of bearer tokens issued",
		},
	)

	// TokensRejectedTotal counts failed token validations.
	TokensRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repogate_auth_tokens_rejected_total",
			Help: "Total number of bearer tokens rejected during validation",
		},
	)
)

// RecordLogin records one login attempt.
func RecordLogin(branch string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	LoginsTotal.WithLabelValues(branch, outcome).Inc()
}

// RecordLogout records a logout.
func RecordLogout() {
	LogoutsTotal.Inc()
}

// RecordSessionCreated records a created session.
func RecordSessionCreated() {
	SessionsCreatedTotal.Inc()
}

// RecordSessionsExpired records sessions removed by cleanup.
func RecordSessionsExpired(n int) {
	SessionsExpiredTotal.Add(float64(n))
}

// RecordTokenIssued records an issued token.
func RecordTokenIssued() {
	TokensIssuedTotal.Inc()
}

// RecordTokenRejected records a rejected token.
func RecordTokenRejected() {
	TokensRejectedTotal.Inc()
}
