// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kare.
//
// Supports TOML, JSON and YAML configuration files, with sensible defaults,
// .env loading, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GatewayConfig: Backend URL, timeout and client-side pacing
//   - ChatConfig: Turn timeout and failure text
//   - MockServerConfig: Development backend settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (KARE_*), including those set by ./.env
//   - ~/.kare/config.toml
//   - ~/.kare/config.json
//   - ~/.kare/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := gateway.NewClientWithConfig(&gateway.Config{
//	    BaseURL: cfg.Gateway.BaseURL,
//	    Timeout: cfg.Gateway.Timeout.Std(),
//	})
package config
