// Streamrelay - Cross-Channel Live Stream Event Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamrelay

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/streamrelay/internal/api"
	"github.com/tomtom215/streamrelay/internal/config"
	"github.com/tomtom215/streamrelay/internal/logging"
	"github.com/tomtom215/streamrelay/internal/reconcile"
	"github.com/tomtom215/streamrelay/internal/registry"
	"github.com/tomtom215/streamrelay/internal/sink"
	"github.com/tomtom215/streamrelay/internal/socket"
	"github.com/tomtom215/streamrelay/internal/supervisor"
	"github.com/tomtom215/streamrelay/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the wired components of a running server.
type app struct {
	cfg        *config.Config
	registry   registry.Registry
	sink       *sink.WatermillSink
	bus        *gochannel.GoChannel // nil unless the gochannel backend is used
	reconciler *reconcile.Reconciler
	handler    *api.Handler
	router     http.Handler
	socket     *socket.Client // nil when the socket channel is disabled
}

// newApp builds every component from cfg. On error, everything opened so far
// is closed again.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	a.registry, err = registry.New(ctx, cfg.ToRegistryConfig())
	if err != nil {
		return a, fmt.Errorf("open registry: %w", err)
	}
	logging.Info().Str("backend", cfg.Registry.Backend).Dur("ttl", cfg.Registry.TTL).Msg("Registry ready")

	a.sink, a.bus, err = sink.Open(cfg.ToSinkConfig())
	if err != nil {
		return a, fmt.Errorf("open sink: %w", err)
	}

	a.reconciler, err = reconcile.New(cfg.Reconcile, reconcile.Options{
		Sink:     a.sink,
		Registry: a.registry,
	})
	if err != nil {
		return a, fmt.Errorf("create reconciler: %w", err)
	}

	verifier, err := newVerifier(cfg.Webhook)
	if err != nil {
		return a, err
	}

	a.handler = api.NewHandler(a.reconciler, verifier, api.HandlerConfig{
		TestEndpointEnabled: cfg.Webhook.TestEndpointEnabled,
		MaxBodyBytes:        cfg.Webhook.MaxBodyBytes,
		Version:             version,
	})

	if cfg.Socket.Enabled {
		a.socket = socket.NewClient(cfg.Socket, a.reconciler)
		a.handler.SetSocketStatus(a.socket)
	} else {
		logging.Info().Msg("Socket channel disabled (SOCKET_ENABLED=false), reconciling from webhooks only")
	}

	mw := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		Webhook:  api.RateLimitConfig{Requests: cfg.Server.RateLimitRequests, Window: cfg.Server.RateLimitWindow},
		Health:   api.RateLimitHealth,
		Disabled: cfg.Server.RateLimitDisabled,
	})
	a.router = api.NewRouter(a.handler, mw).SetupChi()

	return a, nil
}

// newVerifier returns the webhook signature verifier, or nil when
// verification is switched off and no key is configured.
func newVerifier(cfg config.WebhookConfig) (api.Verifier, error) {
	pemData, err := cfg.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	if pemData == nil {
		if cfg.RequireSignature {
			return nil, errors.New("webhook public key is required")
		}
		logging.Warn().Msg("Webhook signature verification DISABLED (REQUIRE_WEBHOOK_SIGNATURE=false)")
		return nil, nil
	}

	v, err := api.NewRSAVerifierFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("load webhook public key: %w", err)
	}
	return v, nil
}

// httpServer returns the server for the API layer.
func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
}

// buildTree adds every long-running component to a new supervisor tree.
func (a *app) buildTree(logger *slog.Logger) (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logger, a.cfg.ToTreeConfig())
	if err != nil {
		return nil, err
	}

	if a.socket != nil {
		tree.AddIngestService(a.socket)
		logging.Info().Strs("channels", a.cfg.Socket.Channels()).Msg("Socket client added to supervisor tree")
	}

	if a.bus != nil && a.cfg.Events.LogNotifications {
		tree.AddMessagingService(services.NewNotificationConsumerService(
			a.bus, sink.Topics(a.cfg.Events.TopicPrefix), services.LogNotification))
		logging.Info().Msg("Notification log consumer added to supervisor tree")
	}

	tree.AddAPIService(services.NewHTTPServerService(a.httpServer(), a.cfg.Server.ShutdownTimeout))
	return tree, nil
}

// Close releases components in reverse order of creation. The bus is
// closed by the sink that owns it.
func (a *app) Close() error {
	var errs []error
	if a.reconciler != nil {
		errs = append(errs, a.reconciler.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	return errors.Join(errs...)
}
