// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testPublicKey = "-----BEGIN PUBLIC KEY-----\nMFwwDQYJKoZIhvcNAQEBBQADSwAwSAJBAK\n-----END PUBLIC KEY-----\n"

// clearEnv empties the process environment for the duration of the test and
// restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	saved := os.Environ()
	os.Clearenv()
	t.Cleanup(func() {
		os.Clearenv()
		for _, kv := range saved {
			if k, v, ok := strings.Cut(kv, "="); ok {
				os.Setenv(k, v)
			}
		}
	})
}

// setMinimalEnv sets the variables required for the default configuration to validate.
func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KICK_PUBLIC_KEY", testPublicKey)
	t.Setenv("KICK_CHATROOM_ID", "12345")
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RateLimitRequests != 600 {
		t.Errorf("Server.RateLimitRequests = %d, want 600", cfg.Server.RateLimitRequests)
	}
	if !cfg.Webhook.RequireSignature {
		t.Error("Webhook.RequireSignature should be true by default")
	}
	if cfg.Webhook.TestEndpointEnabled {
		t.Error("Webhook.TestEndpointEnabled should be false by default")
	}
	if !cfg.Socket.Enabled {
		t.Error("Socket.Enabled should be true by default")
	}
	if cfg.Reconcile.ChatDelay != 5*time.Second {
		t.Errorf("Reconcile.ChatDelay = %v, want 5s", cfg.Reconcile.ChatDelay)
	}
	if cfg.Reconcile.GiftDelay != 10*time.Second {
		t.Errorf("Reconcile.GiftDelay = %v, want 10s", cfg.Reconcile.GiftDelay)
	}
	if cfg.Registry.Backend != "memory" {
		t.Errorf("Registry.Backend = %q, want memory", cfg.Registry.Backend)
	}
	if cfg.Events.Backend != "gochannel" {
		t.Errorf("Events.Backend = %q, want gochannel", cfg.Events.Backend)
	}
	if cfg.Events.TopicPrefix != "streamrelay" {
		t.Errorf("Events.TopicPrefix = %q, want streamrelay", cfg.Events.TopicPrefix)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.Supervisor.FailureThreshold != 5 {
		t.Errorf("Supervisor.FailureThreshold = %v, want 5", cfg.Supervisor.FailureThreshold)
	}
}

// TestEnvTransformFunc tests environment variable name transformation
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"DISABLE_RATE_LIMIT", "server.rate_limit_disabled"},
		{"KICK_PUBLIC_KEY", "webhook.public_key"},
		{"ENABLE_TEST_WEBHOOKS", "webhook.test_endpoint_enabled"},
		{"KICK_CHATROOM_ID", "socket.chatroom_id"},
		{"SOCKET_ENABLED", "socket.enabled"},
		{"RECONCILE_CHAT_DELAY", "reconcile.chat_delay"},
		{"RECONCILE_BUCKET_WIDTH", "reconcile.bucket_width"},
		{"BADGER_DIR", "registry.badger_dir"},
		{"REDIS_ADDR", "registry.redis_addr"},
		{"NATS_EMBEDDED", "events.nats.embedded_server"},
		{"LOG_LEVEL", "logging.level"},
		{"log_format", "logging.format"},
		{"PATH", ""},
		{"HOME", ""},
		{"UNKNOWN_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	t.Run("no config file exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0o644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("logging:\n  level: info\n"), 0o644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		t.Setenv(ConfigPathEnvVar, customPath)
		if result := ConfigFilePath(); result != customPath {
			t.Errorf("ConfigFilePath() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RECONCILE_CHAT_DELAY", "3s")
	t.Setenv("KICK_CHANNEL_ID", "777")
	t.Setenv("SUPERVISOR_FAILURE_THRESHOLD", "3")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Reconcile.ChatDelay != 3*time.Second {
		t.Errorf("Reconcile.ChatDelay = %v, want 3s", cfg.Reconcile.ChatDelay)
	}
	if cfg.Socket.ChatroomID != 12345 || cfg.Socket.ChannelID != 777 {
		t.Errorf("Socket ids = %d/%d, want 12345/777", cfg.Socket.ChatroomID, cfg.Socket.ChannelID)
	}
	if cfg.Supervisor.FailureThreshold != 3 {
		t.Errorf("Supervisor.FailureThreshold = %v, want 3", cfg.Supervisor.FailureThreshold)
	}

	// Defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Reconcile.GiftDelay != 10*time.Second {
		t.Errorf("Reconcile.GiftDelay = %v, want 10s (default)", cfg.Reconcile.GiftDelay)
	}
	if cfg.Socket.URL == "" {
		t.Error("Socket.URL should keep its default")
	}
	if GetKoanfInstance() == nil {
		t.Error("GetKoanfInstance() should be set after a successful load")
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

webhook:
  require_signature: false
  test_endpoint_enabled: true

socket:
  enabled: false

reconcile:
  gift_delay: 8s
  semantic_ttl: 45s

registry:
  backend: badger
  ttl: 1h

logging:
  level: warn
  format: console
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	clearEnv(t)
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8888 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server = %s, want 127.0.0.1:8888", cfg.Server.Addr())
	}
	if cfg.Webhook.RequireSignature || !cfg.Webhook.TestEndpointEnabled {
		t.Errorf("Webhook = %+v, want signature off and test endpoint on", cfg.Webhook)
	}
	if cfg.Socket.Enabled {
		t.Error("Socket.Enabled = true, want false")
	}
	if cfg.Reconcile.GiftDelay != 8*time.Second || cfg.Reconcile.SemanticTTL != 45*time.Second {
		t.Errorf("Reconcile = %+v, want gift 8s, semantic 45s", cfg.Reconcile)
	}
	if cfg.Registry.Backend != "badger" || cfg.Registry.TTL != time.Hour {
		t.Errorf("Registry = %+v, want badger/1h", cfg.Registry)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v, want warn/console", cfg.Logging)
	}

	// Defaults survive for keys the file leaves out
	if cfg.Reconcile.ChatDelay != 5*time.Second {
		t.Errorf("Reconcile.ChatDelay = %v, want 5s (default)", cfg.Reconcile.ChatDelay)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
server:
  port: 8888
socket:
  chatroom_id: 1
logging:
  level: warn
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	clearEnv(t)
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("KICK_PUBLIC_KEY", testPublicKey)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("KICK_CHATROOM_ID", "42")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Socket.ChatroomID != 42 {
		t.Errorf("Socket.ChatroomID = %d, want 42 (env override)", cfg.Socket.ChatroomID)
	}
}

// TestLoadWithKoanfValidation tests that invalid configurations are rejected
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{
			name:    "signature required without key",
			envVars: map[string]string{"KICK_CHATROOM_ID": "1"},
			wantErr: "KICK_PUBLIC_KEY",
		},
		{
			name:    "socket enabled without ids",
			envVars: map[string]string{"KICK_PUBLIC_KEY": testPublicKey},
			wantErr: "KICK_CHATROOM_ID",
		},
		{
			name: "invalid log level",
			envVars: map[string]string{
				"KICK_PUBLIC_KEY":  testPublicKey,
				"KICK_CHATROOM_ID": "1",
				"LOG_LEVEL":        "verbose",
			},
			wantErr: "LOG_LEVEL",
		},
		{
			name: "unknown registry backend",
			envVars: map[string]string{
				"KICK_PUBLIC_KEY":  testPublicKey,
				"KICK_CHATROOM_ID": "1",
				"REGISTRY_BACKEND": "postgres",
			},
			wantErr: "REGISTRY_BACKEND",
		},
		{
			name: "chat delay above semantic ttl",
			envVars: map[string]string{
				"KICK_PUBLIC_KEY":      testPublicKey,
				"KICK_CHATROOM_ID":     "1",
				"RECONCILE_GIFT_DELAY": "2m",
			},
			wantErr: "semantic_ttl",
		},
		{
			name: "invalid nats url",
			envVars: map[string]string{
				"KICK_PUBLIC_KEY":  testPublicKey,
				"KICK_CHATROOM_ID": "1",
				"EVENTS_BACKEND":   "nats",
				"NATS_URL":         "http://localhost:4222",
			},
			wantErr: "NATS_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("LoadWithKoanf() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadWithKoanf() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

// TestWatchConfigFile verifies the callback fires when the file changes
func TestWatchConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	changed := make(chan struct{}, 1)
	if err := WatchConfigFile(configPath, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("WatchConfigFile() error = %v", err)
	}

	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked after file change")
	}
}
