// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

// Package config loads the engine configuration with layered sources:
// struct defaults, an optional YAML file, then environment variables.
// Precedence is ENV > file > defaults.
package config

import (
	"time"
)

// Config is the complete engine configuration.
type Config struct {
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Authz    AuthzConfig    `koanf:"authz"`
	Session  SessionConfig  `koanf:"session"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// StoreConfig configures the content store.
type StoreConfig struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string `koanf:"dir"`

	// InMemory selects a non-durable store, for tests and evaluation.
	InMemory bool `koanf:"in_memory"`
}

// SecurityConfig locates the security configuration subtrees.
type SecurityConfig struct {
	UsersPath     string `koanf:"users_path" validate:"required,startswith=/"`
	GroupsPath    string `koanf:"groups_path" validate:"required,startswith=/"`
	RolesPath     string `koanf:"roles_path" validate:"required,startswith=/"`
	DomainsPath   string `koanf:"domains_path" validate:"required,startswith=/"`
	ProvidersPath string `koanf:"providers_path" validate:"required,startswith=/"`
}

// AuthzConfig configures the permission evaluator.
type AuthzConfig struct {
	// CacheCapacity bounds the per-session read-decision cache. Zero
	// selects the built-in default.
	CacheCapacity int `koanf:"cache_capacity" validate:"min=0"`
}

// SessionConfig configures the session and token layer.
type SessionConfig struct {
	// TTL is the session lifetime.
	TTL time.Duration `koanf:"ttl" validate:"min=1m"`

	// TokenSecret signs bearer tokens. At least 32 bytes.
	TokenSecret string `koanf:"token_secret" validate:"required,min=32"`

	// CleanupInterval paces the expired-session sweep.
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"min=10s"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// RateLimitReqs is the per-client request budget per window. Zero
	// disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Dir:      "/data/repogate",
			InMemory: false,
		},
		Security: SecurityConfig{
			UsersPath:     "/security/users",
			GroupsPath:    "/security/groups",
			RolesPath:     "/security/roles",
			DomainsPath:   "/security/domains",
			ProvidersPath: "/security/providers",
		},
		Authz: AuthzConfig{
			CacheCapacity: 0, // evaluator default
		},
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			TokenSecret:     "",
			CleanupInterval: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8440,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
