// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package services

import (
	"context"

	"github.com/thejerf/suture/v4"

	"github.com/carteret/repogate/internal/federation"
)

// FederationService supervises the federation's provider-definition
// watcher. The federation must already be initialized.
type FederationService struct {
	federation *federation.Federation
}

// NewFederationService wraps an initialized federation.
func NewFederationService(fed *federation.Federation) *FederationService {
	return &FederationService{federation: fed}
}

// Serve implements suture.Service. A nil return means the store ended
// the subscription, which only happens on shutdown; restarting would
// spin on a closed store.
func (f *FederationService) Serve(ctx context.Context) error {
	if err := f.federation.Serve(ctx); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

// String identifies the service in supervisor events.
func (f *FederationService) String() string {
	return "federation-watcher"
}
