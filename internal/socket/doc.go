// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

/*
Package socket is the fast delivery channel: a Pusher protocol client over
gorilla/websocket.

Session lifecycle:

 1. Dial the configured URL (paced by a golang.org/x/time/rate limiter).
 2. Wait for pusher:connection_established and record the socket id and the
    server's activity timeout.
 3. Send pusher:subscribe for chatrooms.<chatroom id>.v2 and channel.<channel id>.
 4. Read frames. pusher:ping is answered with pusher:pong; application
    events have their string encoded data unwrapped and are passed to
    Handler.HandleSocketDelivery.

A pusher:ping is sent every activity interval and the session is dropped if
nothing arrives within the pong timeout after it. Dropped sessions are
re-dialled with exponential backoff between ReconnectMin and ReconnectMax.
A pusher:error with a code in 4000-4099 stops the client; Serve then returns
an error wrapping suture.ErrDoNotRestart.

Client implements suture.Service and is run in the messaging layer of the
supervisor tree.
*/
package socket
