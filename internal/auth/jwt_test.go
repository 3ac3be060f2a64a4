// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenManager("short", time.Hour); err == nil {
		t.Error("NewTokenManager() accepted a short secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	mgr, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	token, err := mgr.Issue("session-1", "alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := mgr.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.SessionID != "session-1" || claims.UserID != "alice" {
		t.Errorf("claims = %+v, want session-1/alice", claims)
	}
}

func TestTokenValidationFailures(t *testing.T) {
	mgr, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	t.Run("garbage", func(t *testing.T) {
		if _, err := mgr.Validate("not.a.token"); err == nil {
			t.Error("Validate() accepted garbage")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenManager(strings.Repeat("x", 32), time.Hour)
		token, err := other.Issue("session-1", "alice")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := mgr.Validate(token); err == nil {
			t.Error("Validate() accepted a token signed with another secret")
		}
	})

	t.Run("expired", func(t *testing.T) {
		short, _ := NewTokenManager(testSecret, -time.Minute)
		token, err := short.Issue("session-1", "alice")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := mgr.Validate(token); err == nil {
			t.Error("Validate() accepted an expired token")
		}
	})

	t.Run("tampered", func(t *testing.T) {
		token, err := mgr.Issue("session-1", "alice")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		tampered := token[:len(token)-2] + "xx"
		if _, err := mgr.Validate(tampered); err == nil {
			t.Error("Validate() accepted a tampered token")
		}
	})
}
