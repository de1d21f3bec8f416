// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/streamrelay/internal/reconcile"
	"github.com/tomtom215/streamrelay/internal/registry"
	"github.com/tomtom215/streamrelay/internal/sink"
	"github.com/tomtom215/streamrelay/internal/socket"
	"github.com/tomtom215/streamrelay/internal/supervisor"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/streamrelay/config.yaml",
	"/etc/streamrelay/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

var (
	lastKoanf   *koanf.Koanf
	lastKoanfMu sync.RWMutex
)

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	tree := supervisor.DefaultTreeConfig()
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Webhook: WebhookConfig{
			RequireSignature:    true,
			TestEndpointEnabled: false,
			MaxBodyBytes:        1 << 20,
		},
		Socket:    socket.DefaultConfig(),
		Reconcile: reconcile.DefaultConfig(),
		Registry: RegistryConfig{
			Backend:   registry.BackendMemory,
			TTL:       24 * time.Hour,
			Prefix:    "streamrelay:registry:",
			BadgerDir: "",
			RedisAddr: "127.0.0.1:6379",
			RedisDB:   0,
		},
		Events: EventsConfig{
			Backend:          sink.BackendGoChannel,
			TopicPrefix:      sink.DefaultTopicPrefix,
			CircuitBreaker:   true,
			LogNotifications: true,
			NATS: NATSConfig{
				URL:            "nats://127.0.0.1:4222",
				EmbeddedServer: false,
				ServerHost:     "127.0.0.1",
				ServerPort:     4222,
				StoreDir:       "/data/nats/jetstream",
				MaxReconnects:  -1,
				ReconnectWait:  2 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: tree.FailureThreshold,
			FailureDecay:     tree.FailureDecay,
			FailureBackoff:   tree.FailureBackoff,
			ShutdownTimeout:  tree.ShutdownTimeout,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Loading order (later sources override earlier):
//  1. Defaults from defaultConfig()
//  2. Config file (config.yaml or CONFIG_PATH)
//  3. Mapped environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// KICK_CHATROOM_ID -> socket.chatroom_id
	// RECONCILE_CHAT_DELAY -> reconcile.chat_delay
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	lastKoanfMu.Lock()
	lastKoanf = k
	lastKoanfMu.Unlock()

	return cfg, nil
}

// ConfigFilePath returns the config file LoadWithKoanf would read, or an
// empty string when none exists.
func ConfigFilePath() string {
	return findConfigFile()
}

// findConfigFile searches for a config file in the default locations.
// Returns empty string if no config file is found.
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

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Webhook mappings
	"kick_public_key":           "webhook.public_key",
	"kick_public_key_file":      "webhook.public_key_file",
	"require_webhook_signature": "webhook.require_signature",
	"enable_test_webhooks":      "webhook.test_endpoint_enabled",
	"webhook_max_body_bytes":    "webhook.max_body_bytes",

	// Socket mappings
	"socket_enabled":           "socket.enabled",
	"socket_url":               "socket.url",
	"kick_chatroom_id":         "socket.chatroom_id",
	"kick_channel_id":          "socket.channel_id",
	"socket_handshake_timeout": "socket.handshake_timeout",
	"socket_activity_timeout":  "socket.activity_timeout",
	"socket_pong_timeout":      "socket.pong_timeout",
	"socket_reconnect_min":     "socket.reconnect_min",
	"socket_reconnect_max":     "socket.reconnect_max",
	"socket_dials_per_minute":  "socket.dials_per_minute",

	// Reconcile mappings
	"reconcile_message_id_ttl":      "reconcile.message_id_ttl",
	"reconcile_message_id_sweep":    "reconcile.message_id_sweep",
	"reconcile_payload_ttl":         "reconcile.payload_ttl",
	"reconcile_payload_sweep":       "reconcile.payload_sweep",
	"reconcile_semantic_ttl":        "reconcile.semantic_ttl",
	"reconcile_semantic_sweep":      "reconcile.semantic_sweep",
	"reconcile_chat_delay":          "reconcile.chat_delay",
	"reconcile_gift_delay":          "reconcile.gift_delay",
	"reconcile_ban_delay":           "reconcile.ban_delay",
	"reconcile_stream_status_delay": "reconcile.stream_status_delay",
	"reconcile_bucket_width":        "reconcile.bucket_width",

	// Registry mappings
	"registry_backend": "registry.backend",
	"registry_ttl":     "registry.ttl",
	"registry_prefix":  "registry.prefix",
	"badger_dir":       "registry.badger_dir",
	"redis_addr":       "registry.redis_addr",
	"redis_db":         "registry.redis_db",
	"redis_password":   "registry.redis_password",

	// Events mappings
	"events_backend":           "events.backend",
	"events_topic_prefix":      "events.topic_prefix",
	"events_circuit_breaker":   "events.circuit_breaker",
	"events_log_notifications": "events.log_notifications",
	"nats_url":                 "events.nats.url",
	"nats_embedded":            "events.nats.embedded_server",
	"nats_server_host":         "events.nats.server_host",
	"nats_server_port":         "events.nats.server_port",
	"nats_store_dir":           "events.nats.store_dir",
	"nats_max_reconnects":      "events.nats.max_reconnects",
	"nats_reconnect_wait":      "events.nats.reconnect_wait",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor mappings
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns the koanf instance behind the most recent
// successful LoadWithKoanf call, or nil before the first load.
func GetKoanfInstance() *koanf.Koanf {
	lastKoanfMu.RLock()
	defer lastKoanfMu.RUnlock()
	return lastKoanf
}

// WatchConfigFile watches the config file for changes and calls callback on each change.
// The callback should reload configuration as needed.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
