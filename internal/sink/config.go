// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package sink

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/streamrelay/internal/logging"
)

// NATSConfig holds NATS connection and embedded server settings.
type NATSConfig struct {
	URL            string
	EmbeddedServer bool
	ServerHost     string
	ServerPort     int
	StoreDir       string
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// Config selects the event bus the sink publishes to.
type Config struct {
	Backend        string
	TopicPrefix    string
	CircuitBreaker bool
	Breaker        BreakerConfig
	NATS           NATSConfig
}

// Open builds the sink for cfg. For the gochannel backend the in-process
// pub/sub is also returned so local consumers can subscribe; it is nil for
// other backends.
func Open(cfg Config) (*WatermillSink, *gochannel.GoChannel, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	var (
		s  *WatermillSink
		gc *gochannel.GoChannel
	)
	switch cfg.Backend {
	case "", BackendGoChannel:
		gc = NewGoChannel(logger)
		s = NewWatermillSink(gc, cfg.TopicPrefix)
	case BackendNATS:
		var err error
		s, err = openNATS(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if cfg.CircuitBreaker {
		bc := cfg.Breaker
		if bc.Name == "" {
			bc.Name = DefaultBreakerConfig().Name
		}
		s.SetCircuitBreaker(NewCircuitBreaker(bc))
	}

	logging.Info().
		Str("backend", backendName(cfg.Backend)).
		Str("topic_prefix", s.prefix).
		Bool("circuit_breaker", cfg.CircuitBreaker).
		Msg("Notification sink ready")

	return s, gc, nil
}

func backendName(b string) string {
	if b == "" {
		return BackendGoChannel
	}
	return b
}
