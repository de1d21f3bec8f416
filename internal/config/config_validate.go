// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/registry"
	"github.com/tomtom215/streamrelay/internal/sink"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateWebhook(); err != nil {
		return err
	}

	if err := c.validateSocket(); err != nil {
		return err
	}

	if err := c.Reconcile.Validate(); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	if err := c.validateRegistry(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateSupervisor(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates the HTTP listener settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	return c.validateRateLimits()
}

// validateRateLimits validates rate limit settings (only if enabled)
func (c *Config) validateRateLimits() error {
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 (or set DISABLE_RATE_LIMIT=true)")
	}
	if c.Server.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %s", c.Server.RateLimitWindow)
	}
	return nil
}

// validateWebhook validates webhook verification settings
func (c *Config) validateWebhook() error {
	if c.Webhook.RequireSignature && !c.Webhook.HasPublicKey() {
		return fmt.Errorf("KICK_PUBLIC_KEY or KICK_PUBLIC_KEY_FILE is required when REQUIRE_WEBHOOK_SIGNATURE=true")
	}
	if c.Webhook.MaxBodyBytes < 1024 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be at least 1024, got %d", c.Webhook.MaxBodyBytes)
	}
	return nil
}

// validateSocket validates the socket channel (only if enabled)
func (c *Config) validateSocket() error {
	if !c.Socket.Enabled {
		return nil
	}
	if err := c.Socket.Validate(); err != nil {
		return fmt.Errorf("socket (KICK_CHATROOM_ID, KICK_CHANNEL_ID, SOCKET_*): %w", err)
	}
	return nil
}

// validateRegistry validates the downstream registry backend
func (c *Config) validateRegistry() error {
	switch c.Registry.Backend {
	case registry.BackendMemory, registry.BackendBadger:
	case registry.BackendRedis:
		if c.Registry.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when REGISTRY_BACKEND=redis")
		}
		if err := validateRedisAddr(c.Registry.RedisAddr); err != nil {
			return fmt.Errorf("invalid REDIS_ADDR: %w", err)
		}
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be one of: memory, badger, redis, got %q", c.Registry.Backend)
	}

	if c.Registry.TTL < c.Reconcile.SemanticTTL {
		return fmt.Errorf("REGISTRY_TTL (%s) must not be shorter than RECONCILE_SEMANTIC_TTL (%s)",
			c.Registry.TTL, c.Reconcile.SemanticTTL)
	}
	return nil
}

// validateEvents validates the notification bus (NATS settings only if selected)
func (c *Config) validateEvents() error {
	if c.Events.TopicPrefix == "" {
		return fmt.Errorf("EVENTS_TOPIC_PREFIX must not be empty")
	}

	switch c.Events.Backend {
	case sink.BackendGoChannel:
		return nil
	case sink.BackendNATS:
		return c.validateNATS()
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of: gochannel, nats, got %q", c.Events.Backend)
	}
}

// validateNATS validates NATS settings for the nats events backend
func (c *Config) validateNATS() error {
	if c.Events.NATS.EmbeddedServer {
		if c.Events.NATS.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
		if c.Events.NATS.ServerPort < 1 || c.Events.NATS.ServerPort > 65535 {
			return fmt.Errorf("NATS_SERVER_PORT must be between 1 and 65535, got %d", c.Events.NATS.ServerPort)
		}
		return nil
	}

	if err := validateNATSURL(c.Events.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

// validateSupervisor validates the restart policy
func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold <= 0 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be positive")
	}
	if c.Supervisor.ShutdownTimeout <= 0 {
		return fmt.Errorf("SUPERVISOR_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

// validateLogLevel validates the log level configuration
func (c *Config) validateLogLevel() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level (trace, debug, info, warn, error, fatal, panic, disabled)", c.Logging.Level)
	}
	return nil
}

// validateLogFormat validates the log format configuration
func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}
