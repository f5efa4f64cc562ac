// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for kare.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shrijat-26/HealthCare-Chatbot/internal/util"
)

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration that reads and writes as "30s" in every format.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kare configuration.
type Config struct {
	Version string `toml:"version" json:"version" yaml:"version"`

	// Backend connection
	Gateway GatewayConfig `toml:"gateway" json:"gateway" yaml:"gateway"`

	// Chat turn behaviour
	Chat ChatConfig `toml:"chat" json:"chat" yaml:"chat"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Log output
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Development backend
	MockServer MockServerConfig `toml:"mock_server" json:"mock_server" yaml:"mock_server"`
}

// GatewayConfig configures the backend client.
type GatewayConfig struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// Timeout bounds a single HTTP exchange
	Timeout Duration `toml:"timeout" json:"timeout" yaml:"timeout"`
	// RateLimit is the maximum requests per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
	// Burst is the limiter burst size
	Burst int `toml:"burst" json:"burst" yaml:"burst"`
}

// ChatConfig configures turn handling.
type ChatConfig struct {
	// TurnTimeout bounds a whole turn
	TurnTimeout Duration `toml:"turn_timeout" json:"turn_timeout" yaml:"turn_timeout"`
	// ErrorText replaces the assistant message of a failed turn
	ErrorText string `toml:"error_text" json:"error_text" yaml:"error_text"`
	// HistoryFile stores line-mode prompt history
	HistoryFile string `toml:"history_file" json:"history_file" yaml:"history_file"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Markdown renders assistant answers as markdown
	Markdown bool `toml:"markdown" json:"markdown" yaml:"markdown"`
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// VoiceDropDir is watched for audio files to send as voice turns ("" = off)
	VoiceDropDir string `toml:"voice_drop_dir" json:"voice_drop_dir" yaml:"voice_drop_dir"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// File receives logs in interactive modes
	File string `toml:"file" json:"file" yaml:"file"`
}

// MockServerConfig configures `kare mock-server`.
type MockServerConfig struct {
	Addr        string `toml:"addr" json:"addr" yaml:"addr"`
	DBPath      string `toml:"db_path" json:"db_path" yaml:"db_path"`
	UploadDir   string `toml:"upload_dir" json:"upload_dir" yaml:"upload_dir"`
	MaxUploadMB int    `toml:"max_upload_mb" json:"max_upload_mb" yaml:"max_upload_mb"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".kare"
	}

	return &Config{
		Version: "1.0.0",

		Gateway: GatewayConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: Duration(30 * time.Second),
		},

		Chat: ChatConfig{
			TurnTimeout: Duration(60 * time.Second),
			ErrorText:   "Error retrieving answer.",
			HistoryFile: filepath.Join(dir, "chat_history"),
		},

		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},

		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "kare.log"),
		},

		MockServer: MockServerConfig{
			Addr:        "127.0.0.1:8000",
			DBPath:      filepath.Join(dir, "mock.db"),
			MaxUploadMB: 25,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the kare configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kare"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// ActivePath returns the first config file that exists, or the TOML path
// if none does.
func ActivePath() (string, error) {
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		p, err := fn()
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return ConfigPathTOML()
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found, trying TOML,
// then JSON, then YAML, and falls back to defaults. A .env file in the
// working directory is loaded first; environment overrides are applied last.
//
// A file that exists but fails to parse is skipped and its error returned
// alongside the resulting config.
func Load() (*Config, error) {
	loadDotEnv()

	var loadErr error
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON, ConfigPathYAML} {
		path, err := fn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}

		cfg := Default()
		if err := decodeFile(cfg, path); err != nil {
			loadErr = errors.Join(loadErr, err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file. The format is
// chosen by extension (.json, .yaml/.yml, otherwise TOML).
func LoadFromPath(path string) (*Config, error) {
	loadDotEnv()

	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeFile(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(cfg, path)
	case ".yaml", ".yml":
		return LoadYAML(cfg, path)
	default:
		return LoadTOML(cfg, path)
	}
}

// loadDotEnv loads .env from the working directory without overriding
// variables already set in the environment.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file %s: %w", path, err)
	}
	return nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	data, err := cfg.TOML()
	if err != nil {
		return err
	}
	header := "# kare configuration file\n# Generated by kare - edit with care\n\n"
	if err := util.AtomicWriteFile(path, []byte(header+data), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// TOML returns the configuration encoded as TOML.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validThemes = map[string]bool{"dark": true, "light": true, "auto": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Gateway
	if u, err := url.Parse(c.Gateway.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "gateway.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Gateway.BaseURL),
		})
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "gateway.timeout", Message: "must be positive"})
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "gateway.rate_limit", Message: "must not be negative"})
	}
	if c.Gateway.Burst < 0 {
		errs = append(errs, ValidationError{Field: "gateway.burst", Message: "must not be negative"})
	}

	// Chat
	if c.Chat.TurnTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "chat.turn_timeout", Message: "must be positive"})
	}
	if strings.TrimSpace(c.Chat.ErrorText) == "" {
		errs = append(errs, ValidationError{Field: "chat.error_text", Message: "must not be empty"})
	}

	// UI
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// Logging
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	// Mock server
	if c.MockServer.Addr == "" {
		errs = append(errs, ValidationError{Field: "mock_server.addr", Message: "must not be empty"})
	}
	if c.MockServer.MaxUploadMB <= 0 || c.MockServer.MaxUploadMB > 100 {
		errs = append(errs, ValidationError{Field: "mock_server.max_upload_mb", Message: "must be between 1 and 100"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = defaults.Gateway.BaseURL
	}
	c.Gateway.BaseURL = strings.TrimRight(c.Gateway.BaseURL, "/")
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = defaults.Gateway.Timeout
	}
	if c.Chat.TurnTimeout == 0 {
		c.Chat.TurnTimeout = defaults.Chat.TurnTimeout
	}
	if c.Chat.ErrorText == "" {
		c.Chat.ErrorText = defaults.Chat.ErrorText
	}
	if c.Chat.HistoryFile == "" {
		c.Chat.HistoryFile = defaults.Chat.HistoryFile
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.File == "" {
		c.Logging.File = defaults.Logging.File
	}
	if c.MockServer.Addr == "" {
		c.MockServer.Addr = defaults.MockServer.Addr
	}
	if c.MockServer.DBPath == "" {
		c.MockServer.DBPath = defaults.MockServer.DBPath
	}
	if c.MockServer.MaxUploadMB == 0 {
		c.MockServer.MaxUploadMB = defaults.MockServer.MaxUploadMB
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - KARE_GATEWAY_URL: overrides gateway.base_url
//   - KARE_GATEWAY_TIMEOUT: overrides gateway.timeout ("30s")
//   - KARE_TURN_TIMEOUT: overrides chat.turn_timeout
//   - KARE_LOG_LEVEL: overrides logging.level
//   - KARE_LOG_FILE: overrides logging.file
//   - KARE_MOCK_ADDR: overrides mock_server.addr
//   - KARE_MOCK_DB: overrides mock_server.db_path
//   - KARE_VOICE_DROP_DIR: overrides ui.voice_drop_dir
//   - KARE_MARKDOWN: "1"/"true" or "0"/"false" toggles ui.markdown
//
// Unparseable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KARE_GATEWAY_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("KARE_GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Gateway.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("KARE_TURN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Chat.TurnTimeout = Duration(d)
		}
	}
	if v := os.Getenv("KARE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("KARE_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("KARE_MOCK_ADDR"); v != "" {
		c.MockServer.Addr = v
	}
	if v := os.Getenv("KARE_MOCK_DB"); v != "" {
		c.MockServer.DBPath = v
	}
	if v := os.Getenv("KARE_VOICE_DROP_DIR"); v != "" {
		c.UI.VoiceDropDir = v
	}
	if v := os.Getenv("KARE_MARKDOWN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UI.Markdown = b
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

var durationType = reflect.TypeOf(Duration(0))

// Get retrieves a configuration value using dot notation (e.g., "gateway.base_url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if field.Type() == durationType {
		return Duration(field.Int()).Std().String(), nil
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an arbitrary value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		if field.Type() == durationType {
			d, err := time.ParseDuration(strVal)
			if err != nil {
				return fmt.Errorf("invalid duration value: %v", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"gateway.base_url",
		"gateway.timeout",
		"gateway.rate_limit",
		"gateway.burst",
		"chat.turn_timeout",
		"chat.error_text",
		"chat.history_file",
		"ui.markdown",
		"ui.theme",
		"ui.voice_drop_dir",
		"logging.level",
		"logging.file",
		"mock_server.addr",
		"mock_server.db_path",
		"mock_server.upload_dir",
		"mock_server.max_upload_mb",
	}
}

// String returns the configuration as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
