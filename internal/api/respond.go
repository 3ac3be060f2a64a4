// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// apiError is the uniform error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are not recoverable.
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}
