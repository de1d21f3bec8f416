// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

//go:build nats

package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

// NATSAvailable reports whether the binary was built with NATS support.
const NATSAvailable = true

// EmbeddedServer wraps an in-process NATS JetStream server.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer starts a JetStream-enabled NATS server and waits for it
// to accept connections.
func NewEmbeddedServer(cfg NATSConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "streamrelay-events",
		Host:       cfg.ServerHost,
		Port:       cfg.ServerPort,
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}

// NewNATSPublisher creates a JetStream publisher with reconnect handling.
// Message UUIDs are sent as Nats-Msg-Id so the broker drops republished
// notifications.
func NewNATSPublisher(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// openNATS builds the NATS sink, starting an embedded server first when
// configured.
func openNATS(cfg Config, logger watermill.LoggerAdapter) (*WatermillSink, error) {
	natsCfg := cfg.NATS
	var embedded *EmbeddedServer
	if natsCfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(natsCfg)
		if err != nil {
			return nil, err
		}
		embedded = srv
		natsCfg.URL = srv.ClientURL()
	}

	pub, err := NewNATSPublisher(natsCfg, logger)
	if err != nil {
		if embedded != nil {
			_ = embedded.Shutdown(context.Background())
		}
		return nil, err
	}

	s := NewWatermillSink(pub, cfg.TopicPrefix)
	if embedded != nil {
		s.addCloser(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return embedded.Shutdown(ctx)
		})
	}
	return s, nil
}
