// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package middleware

import (
	"net/http"
	"time"

	"github.com/carteret/repogate/internal/logging"
)

// RequestLogger emits one structured log line per request with method,
// path, status, duration, and the request ID when present.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		ev := logging.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = logging.Error()
		} else if rec.status >= http.StatusBadRequest {
			ev = logging.Warn()
		}
		ev.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr)
		if id := GetRequestID(r.Context()); id != "" {
			ev.Str("request_id", id)
		}
		ev.Msg("http request")
	})
}
