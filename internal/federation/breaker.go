// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package federation

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/carteret/repogate/internal/logging"
)

// breakerUserManager wraps an external provider's user manager with a
// circuit breaker so a hung or failing backend cannot stall every
// login attempt. An open circuit surfaces as an error, which the
// federation treats like any other authentication failure.
type breakerUserManager struct {
	inner UserManager
	cb    *gobreaker.CircuitBreaker[any]
}

// newBreakerUserManager builds the wrapper. The breaker opens after a
// 60% failure rate over at least 10 requests, waits a minute before
// probing, and allows 3 probes in the half-open state.
func newBreakerUserManager(providerName string, inner UserManager) *breakerUserManager {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "provider-" + providerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// An unknown user is a definitive answer, not a backend fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUserNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("provider circuit breaker state change")
		},
	})
	return &breakerUserManager{inner: inner, cb: cb}
}

func (b *breakerUserManager) Authenticate(ctx context.Context, userID, password string) (bool, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.Authenticate(ctx, userID, password)
	})
	if err != nil {
		return false, err
	}
	granted, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("breaker: unexpected result type %T", result)
	}
	return granted, nil
}

func (b *breakerUserManager) GetUser(ctx context.Context, userID string) (*User, error) {
	result, err := b.cb.Execute(func() (any, error) {
		user, err := b.inner.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	user, ok := result.(*User)
	if !ok {
		return nil, fmt.Errorf("breaker: unexpected result type %T", result)
	}
	return user, nil
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
