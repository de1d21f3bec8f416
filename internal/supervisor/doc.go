// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package supervisor provides process supervision for Streamrelay using suture v4.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("streamrelay")
	├── IngestSupervisor ("ingest-layer")
	│   └── socket.Client (if SOCKET_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   └── NotificationConsumerService (gochannel backend, EVENTS_LOG_NOTIFICATIONS)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The webhook channel is authoritative, so the api layer keeps running while
the socket client backs off and reconnects. A fatal Pusher error makes the
socket client return an error wrapping suture.ErrDoNotRestart; the rest of
the tree is unaffected.

# Usage Example

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, cfg.ToTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddIngestService(socketClient)
	tree.AddMessagingService(services.NewNotificationConsumerService(gc, topics, nil))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Configuration

TreeConfig controls restart behavior:
  - FailureThreshold: failures before backoff (default: 5)
  - FailureDecay: seconds for failure count to decay (default: 30)
  - FailureBackoff: backoff duration (default: 15s)
  - ShutdownTimeout: max wait for service stop (default: 10s)

# See Also

  - internal/supervisor/services: service wrappers
  - github.com/thejerf/suture/v4
*/
package supervisor
