// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the config directory at a temp dir and clears KARE_*.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"KARE_GATEWAY_URL", "KARE_GATEWAY_TIMEOUT", "KARE_TURN_TIMEOUT",
		"KARE_LOG_LEVEL", "KARE_LOG_FILE", "KARE_MOCK_ADDR", "KARE_MOCK_DB",
		"KARE_VOICE_DROP_DIR", "KARE_MARKDOWN",
	} {
		t.Setenv(k, "")
	}
	// .env is read from the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Chat.TurnTimeout.Std())
	assert.Equal(t, "Error retrieving answer.", cfg.Chat.ErrorText)
	assert.True(t, cfg.UI.Markdown)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Gateway, cfg.Gateway)
}

// =============================================================================
// FILE FORMATS
// =============================================================================

func TestLoad_TOML(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".kare")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[gateway]
base_url = "http://backend.local:9000/"
timeout = "5s"
rate_limit = 2.5

[chat]
turn_timeout = "90s"

[ui]
theme = "light"
`), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://backend.local:9000", cfg.Gateway.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout.Std())
	assert.Equal(t, 2.5, cfg.Gateway.RateLimit)
	assert.Equal(t, 90*time.Second, cfg.Chat.TurnTimeout.Std())
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, "Error retrieving answer.", cfg.Chat.ErrorText, "unset fields keep defaults")
	assert.True(t, cfg.UI.Markdown, "unset bools keep defaults")
}

func TestLoadFromPath_JSONAndYAML(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "kare.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"gateway": {"timeout": "12s"}, "logging": {"level": "debug"}}`), 0o600))
	cfg, err := LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.Gateway.Timeout.Std())
	assert.Equal(t, "debug", cfg.Logging.Level)

	yamlPath := filepath.Join(dir, "kare.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("mock_server:\n  addr: 0.0.0.0:8123\n  max_upload_mb: 10\nui:\n  markdown: false\n"), 0o600))
	cfg, err = LoadFromPath(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8123", cfg.MockServer.Addr)
	assert.Equal(t, 10, cfg.MockServer.MaxUploadMB)
	assert.False(t, cfg.UI.Markdown)
}

func TestLoad_BrokenFileFallsBack(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".kare")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("gateway:\n  burst: 4\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err, "a later valid file wins")
	assert.Equal(t, 4, cfg.Gateway.Burst)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Gateway.BaseURL = "https://kare.example"
	cfg.Chat.TurnTimeout = Duration(2 * time.Minute)
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Gateway, loaded.Gateway)
	assert.Equal(t, cfg.Chat.TurnTimeout, loaded.Chat.TurnTimeout)
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("KARE_GATEWAY_URL", "http://10.0.0.5:8000")
	t.Setenv("KARE_GATEWAY_TIMEOUT", "3s")
	t.Setenv("KARE_TURN_TIMEOUT", "bogus")
	t.Setenv("KARE_LOG_LEVEL", "DEBUG")
	t.Setenv("KARE_VOICE_DROP_DIR", "/tmp/voice")
	t.Setenv("KARE_MARKDOWN", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://10.0.0.5:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Chat.TurnTimeout.Std(), "invalid duration ignored")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/voice", cfg.UI.VoiceDropDir)
	assert.False(t, cfg.UI.Markdown)
}

func TestLoad_DotEnv(t *testing.T) {
	home := isolateHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("KARE_MOCK_ADDR=127.0.0.1:9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KARE_MOCK_ADDR") })
	// godotenv does not override variables that are already set.
	os.Unsetenv("KARE_MOCK_ADDR")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.MockServer.Addr)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Gateway.BaseURL = "ftp://x" }, "gateway.base_url"},
		{"no host", func(c *Config) { c.Gateway.BaseURL = "http://" }, "gateway.base_url"},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }, "gateway.timeout"},
		{"negative rate", func(c *Config) { c.Gateway.RateLimit = -1 }, "gateway.rate_limit"},
		{"zero turn timeout", func(c *Config) { c.Chat.TurnTimeout = 0 }, "chat.turn_timeout"},
		{"blank error text", func(c *Config) { c.Chat.ErrorText = "  " }, "chat.error_text"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"upload too big", func(c *Config) { c.MockServer.MaxUploadMB = 500 }, "mock_server.max_upload_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "want ValidateErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}
	assert.Equal(t, "a: x; b: y", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("gateway.base_url", "http://other:1"))
	v, err := cfg.Get("gateway.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://other:1", v)

	require.NoError(t, cfg.Set("chat.turn_timeout", "45s"))
	v, err = cfg.Get("chat.turn_timeout")
	require.NoError(t, err)
	assert.Equal(t, "45s", v)

	require.NoError(t, cfg.Set("mock_server.max_upload_mb", "7"))
	assert.Equal(t, 7, cfg.MockServer.MaxUploadMB)

	require.NoError(t, cfg.Set("ui.markdown", "no"))
	assert.False(t, cfg.UI.Markdown)

	require.NoError(t, cfg.Set("gateway.rate_limit", 1.5))
	assert.Equal(t, 1.5, cfg.Gateway.RateLimit)

	_, err = cfg.Get("gateway.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("chat.turn_timeout", "soon"))
	assert.Error(t, cfg.Set("gateway.base_url.x", "y"))
}

func TestGetAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}
