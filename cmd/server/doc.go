// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package main is the entry point for the Streamrelay server.

Streamrelay listens to a live stream provider on two channels at once: signed
webhooks (slow, complete, at-least-once) and a Pusher-protocol socket (fast,
thin, best effort). It reconciles both into exactly one notification per
real-world occurrence and publishes the notifications on a watermill bus.

# Application Architecture

	RootSupervisor ("streamrelay")
	├── IngestSupervisor ("ingest-layer")
	│   └── Socket client (chatrooms.<id>.v2, channel.<id>)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Notification log consumer (gochannel backend)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (/api/v1/webhooks/kick, /health, /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment variables
 2. Logging: zerolog with JSON/console output modes
 3. Registry: downstream idempotent store (memory, badger or redis)
 4. Sink: watermill publisher (gochannel, or NATS JetStream with -tags nats)
 5. Reconciler: gates, arbitration windows and the registry check
 6. Webhook verifier and chi router
 7. Socket client
 8. Supervisor Tree: Suture v4 process supervision

# Configuration

	# Webhook channel
	KICK_PUBLIC_KEY_FILE=/etc/streamrelay/kick.pem
	ENABLE_TEST_WEBHOOKS=false

	# Socket channel
	KICK_CHATROOM_ID=123456
	KICK_CHANNEL_ID=654321

	# Output
	EVENTS_BACKEND=gochannel     # or nats (build with -tags nats)
	REGISTRY_BACKEND=memory      # memory, badger or redis

	LOG_LEVEL=info
	LOG_FORMAT=json

See internal/config for the full list.

# Build Tags

	go build ./cmd/server              # gochannel bus only
	go build -tags nats ./cmd/server   # adds the NATS JetStream backend

# Signal Handling

On SIGINT or SIGTERM the supervisor tree stops every service, the HTTP server
drains in-flight requests, pending arbitration timers are cancelled, and the
sink and registry are closed. Services that miss the shutdown timeout are
reported.

# Usage Examples

Local development without signature checks:

	export REQUIRE_WEBHOOK_SIGNATURE=false ENABLE_TEST_WEBHOOKS=true
	export KICK_CHATROOM_ID=123456 LOG_FORMAT=console
	go run ./cmd/server

Shared registry across replicas:

	export REGISTRY_BACKEND=redis REDIS_ADDR=redis:6379
	export EVENTS_BACKEND=nats NATS_URL=nats://nats:4222
	./streamrelay
*/
package main
