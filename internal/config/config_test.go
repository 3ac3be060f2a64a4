// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultsValidateWithSecret(t *testing.T) {
	cfg := Default()
	cfg.Session.TokenSecret = testSecret

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token secret", func(c *Config) { c.Session.TokenSecret = "" }},
		{"short token secret", func(c *Config) { c.Session.TokenSecret = "short" }},
		{"relative security path", func(c *Config) { c.Security.DomainsPath = "security/domains" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"durable store without dir", func(c *Config) { c.Store.Dir = "" }},
		{"rate limit without window", func(c *Config) { c.Server.RateLimitWindow = 0 }},
		{"tiny session ttl", func(c *Config) { c.Session.TTL = time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Session.TokenSecret = testSecret
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid configuration")
			}
		})
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repogate.yaml")
	content := strings.Join([]string{
		"store:",
		"  in_memory: true",
		"session:",
		"  token_secret: " + testSecret,
		"server:",
		"  port: 9090",
		"logging:",
		"  level: debug",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !cfg.Store.InMemory {
		t.Error("store.in_memory not applied")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Security.DomainsPath != "/security/domains" {
		t.Errorf("security.domains_path = %q, want default", cfg.Security.DomainsPath)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repogate.yaml")
	content := strings.Join([]string{
		"store:",
		"  in_memory: true",
		"session:",
		"  token_secret: " + testSecret,
		"server:",
		"  port: 9090",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("REPOGATE_HTTP_PORT", "7070")
	t.Setenv("REPOGATE_LOG_LEVEL", "warn")
	t.Setenv("REPOGATE_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn", cfg.Logging.Level)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors_origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestUnmappedEnvironmentIgnored(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want dropped", got)
	}
	if got := envTransformFunc("REPOGATE_HTTP_PORT"); got != "server.port" {
		t.Errorf("envTransformFunc(REPOGATE_HTTP_PORT) = %q", got)
	}
}
