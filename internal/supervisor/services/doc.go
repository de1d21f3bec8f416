// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package services provides suture.Service wrappers for Streamrelay components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe to Serve

Notification Consumer (NotificationConsumerService):
  - Subscribes to every notification topic on a watermill subscriber
  - Decodes each message and hands it to a NotificationHandler
  - Returns ErrSubscriptionClosed when the bus closes a subscription

The socket client implements suture.Service itself and needs no wrapper.

# Error Handling

Returning nil or ctx.Err() signals normal shutdown. Any other error makes the
supervisor restart the service with backoff. Errors wrapping
suture.ErrDoNotRestart retire the service for the life of the process.
*/
package services
