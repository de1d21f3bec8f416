// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/reconcile"
	"github.com/tomtom215/streamrelay/internal/registry"
	"github.com/tomtom215/streamrelay/internal/sink"
	"github.com/tomtom215/streamrelay/internal/socket"
	"github.com/tomtom215/streamrelay/internal/supervisor"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional YAML file (config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Configuration Categories:
//
//  1. Ingest:
//     - Webhook: signed webhook deliveries (verification, test endpoint)
//     - Socket: realtime Pusher channel subscription
//
//  2. Reconciliation:
//     - Reconcile: gate TTLs, sweep intervals, arbitration delays
//     - Registry: downstream idempotent store (memory, badger, redis)
//
//  3. Output:
//     - Events: notification bus (gochannel or NATS JetStream)
//
//  4. Runtime:
//     - Server: HTTP listener and rate limits
//     - Logging, Supervisor
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Webhook    WebhookConfig    `koanf:"webhook"`
	Socket     socket.Config    `koanf:"socket"`
	Reconcile  reconcile.Config `koanf:"reconcile"`
	Registry   RegistryConfig   `koanf:"registry"`
	Events     EventsConfig     `koanf:"events"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests is the per-IP budget for webhook deliveries within
	// RateLimitWindow.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// WebhookConfig controls the signed webhook channel.
type WebhookConfig struct {
	// PublicKey is the provider's PEM encoded RSA public key. PublicKeyFile
	// takes precedence when both are set.
	PublicKey     string `koanf:"public_key"`
	PublicKeyFile string `koanf:"public_key_file"`

	// RequireSignature rejects every delivery when no key is configured.
	// Disable only for local development.
	RequireSignature bool `koanf:"require_signature"`

	// TestEndpointEnabled exposes POST /api/v1/webhooks/test.
	TestEndpointEnabled bool `koanf:"test_endpoint_enabled"`

	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// HasPublicKey reports whether a verification key is configured.
func (w WebhookConfig) HasPublicKey() bool {
	return strings.TrimSpace(w.PublicKey) != "" || w.PublicKeyFile != ""
}

// PublicKeyPEM returns the configured key material, reading PublicKeyFile
// when set. It returns nil when no key is configured.
func (w WebhookConfig) PublicKeyPEM() ([]byte, error) {
	if w.PublicKeyFile != "" {
		data, err := os.ReadFile(w.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook public key: %w", err)
		}
		return data, nil
	}
	if strings.TrimSpace(w.PublicKey) == "" {
		return nil, nil
	}
	return []byte(w.PublicKey), nil
}

// RegistryConfig selects the downstream idempotent store.
type RegistryConfig struct {
	// Backend is memory, badger or redis.
	Backend string        `koanf:"backend"`
	TTL     time.Duration `koanf:"ttl"`
	Prefix  string        `koanf:"prefix"`

	// BadgerDir is the badger data directory. Empty runs badger in memory.
	BadgerDir string `koanf:"badger_dir"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPassword string `koanf:"redis_password"`
}

// EventsConfig selects the notification bus.
type EventsConfig struct {
	// Backend is gochannel (in-process) or nats.
	Backend        string `koanf:"backend"`
	TopicPrefix    string `koanf:"topic_prefix"`
	CircuitBreaker bool   `koanf:"circuit_breaker"`

	// LogNotifications subscribes a consumer to the in-process bus that
	// logs every notification. Only used with the gochannel backend.
	LogNotifications bool `koanf:"log_notifications"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig holds NATS JetStream settings for the nats events backend.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	ServerHost     string        `koanf:"server_host"`
	ServerPort     int           `koanf:"server_port"`
	StoreDir       string        `koanf:"store_dir"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig tunes the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// ToLoggingConfig converts to the logging package configuration.
func (c *Config) ToLoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// ToRegistryConfig converts to the registry package configuration.
func (c *Config) ToRegistryConfig() registry.Config {
	return registry.Config{
		Backend:       c.Registry.Backend,
		TTL:           c.Registry.TTL,
		Prefix:        c.Registry.Prefix,
		BadgerDir:     c.Registry.BadgerDir,
		RedisAddr:     c.Registry.RedisAddr,
		RedisDB:       c.Registry.RedisDB,
		RedisPassword: c.Registry.RedisPassword,
	}
}

// ToSinkConfig converts to the sink package configuration.
func (c *Config) ToSinkConfig() sink.Config {
	return sink.Config{
		Backend:        c.Events.Backend,
		TopicPrefix:    c.Events.TopicPrefix,
		CircuitBreaker: c.Events.CircuitBreaker,
		Breaker:        sink.DefaultBreakerConfig(),
		NATS: sink.NATSConfig{
			URL:            c.Events.NATS.URL,
			EmbeddedServer: c.Events.NATS.EmbeddedServer,
			ServerHost:     c.Events.NATS.ServerHost,
			ServerPort:     c.Events.NATS.ServerPort,
			StoreDir:       c.Events.NATS.StoreDir,
			MaxReconnects:  c.Events.NATS.MaxReconnects,
			ReconnectWait:  c.Events.NATS.ReconnectWait,
		},
	}
}

// ToTreeConfig converts to the supervisor tree configuration.
func (c *Config) ToTreeConfig() supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: c.Supervisor.FailureThreshold,
		FailureDecay:     c.Supervisor.FailureDecay,
		FailureBackoff:   c.Supervisor.FailureBackoff,
		ShutdownTimeout:  c.Supervisor.ShutdownTimeout,
	}
}
