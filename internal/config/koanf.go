// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, first
// match wins.
var DefaultConfigPaths = []string{
	"repogate.yaml",
	"repogate.yml",
	"/etc/repogate/config.yaml",
	"/etc/repogate/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "REPOGATE_CONFIG"

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile builds the configuration with an explicit config file.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are the keys parsed as comma-separated lists when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are dropped so stray environment noise cannot
// reach the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"REPOGATE_STORE_DIR":       "store.dir",
		"REPOGATE_STORE_IN_MEMORY": "store.in_memory",

		"REPOGATE_USERS_PATH":     "security.users_path",
		"REPOGATE_GROUPS_PATH":    "security.groups_path",
		"REPOGATE_ROLES_PATH":     "security.roles_path",
		"REPOGATE_DOMAINS_PATH":   "security.domains_path",
		"REPOGATE_PROVIDERS_PATH": "security.providers_path",

		"REPOGATE_CACHE_CAPACITY": "authz.cache_capacity",

		"REPOGATE_SESSION_TTL":     "session.ttl",
		"REPOGATE_TOKEN_SECRET":    "session.token_secret",
		"REPOGATE_SESSION_CLEANUP": "session.cleanup_interval",

		"REPOGATE_HTTP_HOST":         "server.host",
		"REPOGATE_HTTP_PORT":         "server.port",
		"REPOGATE_HTTP_TIMEOUT":      "server.timeout",
		"REPOGATE_RATE_LIMIT_REQS":   "server.rate_limit_reqs",
		"REPOGATE_RATE_LIMIT_WINDOW": "server.rate_limit_window",
		"REPOGATE_CORS_ORIGINS":      "server.cors_origins",

		"REPOGATE_LOG_LEVEL":  "logging.level",
		"REPOGATE_LOG_FORMAT": "logging.format",
		"REPOGATE_LOG_CALLER": "logging.caller",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
