// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package config provides centralized configuration management for Streamrelay.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then mapped environment variables. LoadWithKoanf validates the
result before returning it.

# Configuration Sources

  - Defaults: defaultConfig()
  - Config file: CONFIG_PATH, or config.yaml / /etc/streamrelay/config.yaml
  - Environment variables: only names listed in the mapping table are read

# Environment Variables

HTTP Server (ServerConfig):
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Webhook (WebhookConfig):
  - KICK_PUBLIC_KEY: PEM encoded RSA public key
  - KICK_PUBLIC_KEY_FILE: path to the key (takes precedence)
  - REQUIRE_WEBHOOK_SIGNATURE: refuse to start without a key (default: true)
  - ENABLE_TEST_WEBHOOKS: expose the test injection endpoint (default: false)
  - WEBHOOK_MAX_BODY_BYTES (default: 1MB)

Socket (socket.Config):
  - SOCKET_ENABLED (default: true), SOCKET_URL
  - KICK_CHATROOM_ID, KICK_CHANNEL_ID: at least one is required when enabled
  - SOCKET_ACTIVITY_TIMEOUT, SOCKET_PONG_TIMEOUT, SOCKET_HANDSHAKE_TIMEOUT
  - SOCKET_RECONNECT_MIN, SOCKET_RECONNECT_MAX, SOCKET_DIALS_PER_MINUTE

Reconciliation (reconcile.Config):
  - RECONCILE_MESSAGE_ID_TTL, RECONCILE_PAYLOAD_TTL, RECONCILE_SEMANTIC_TTL
  - RECONCILE_*_SWEEP: background eviction interval per gate
  - RECONCILE_CHAT_DELAY, RECONCILE_GIFT_DELAY, RECONCILE_BAN_DELAY,
    RECONCILE_STREAM_STATUS_DELAY
  - RECONCILE_BUCKET_WIDTH: fingerprint time bucket

Registry (RegistryConfig):
  - REGISTRY_BACKEND: memory, badger or redis
  - REGISTRY_TTL, REGISTRY_PREFIX, BADGER_DIR
  - REDIS_ADDR, REDIS_DB, REDIS_PASSWORD

Events (EventsConfig):
  - EVENTS_BACKEND: gochannel or nats
  - EVENTS_TOPIC_PREFIX, EVENTS_CIRCUIT_BREAKER, EVENTS_LOG_NOTIFICATIONS
  - NATS_URL, NATS_EMBEDDED, NATS_SERVER_HOST, NATS_SERVER_PORT, NATS_STORE_DIR,
    NATS_MAX_RECONNECTS, NATS_RECONNECT_WAIT

Logging and supervision:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - SUPERVISOR_FAILURE_THRESHOLD, SUPERVISOR_FAILURE_DECAY,
    SUPERVISOR_FAILURE_BACKOFF, SUPERVISOR_SHUTDOWN_TIMEOUT

# Usage Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	logging.Init(cfg.ToLoggingConfig())
	reg, err := registry.New(ctx, cfg.ToRegistryConfig())

# Hot Reload

WatchConfigFile invokes a callback whenever the YAML file changes. The server
uses it to re-apply the log level; every other setting requires a restart.
*/
package config
