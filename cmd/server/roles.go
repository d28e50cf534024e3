// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/herald/internal/api"
	"github.com/tomtom215/herald/internal/auth"
	"github.com/tomtom215/herald/internal/broker"
	"github.com/tomtom215/herald/internal/config"
	"github.com/tomtom215/herald/internal/dedup"
	"github.com/tomtom215/herald/internal/delivery/email"
	"github.com/tomtom215/herald/internal/logging"
	"github.com/tomtom215/herald/internal/pipeline"
	"github.com/tomtom215/herald/internal/recipients"
	"github.com/tomtom215/herald/internal/supervisor"
	"github.com/tomtom215/herald/internal/supervisor/services"
	"github.com/tomtom215/herald/internal/templates"
	ws "github.com/tomtom215/herald/internal/websocket"
)

// templateStoreWait bounds how long startup waits for the template database.
const templateStoreWait = 2 * time.Minute

// roleWiring collects what the enabled roles need closed after the tree stops.
type roleWiring struct {
	closers []io.Closer
}

func (w *roleWiring) track(c io.Closer) {
	w.closers = append(w.closers, c)
}

// Close releases resources in reverse order of creation.
func (w *roleWiring) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil {
			logging.Warn().Err(err).Msg("close failed")
		}
	}
}

func wireRoles(ctx context.Context, cfg *config.Config, bc *BrokerComponents, tree *supervisor.SupervisorTree) (*roleWiring, error) {
	w := &roleWiring{}
	wmLogger := logging.NewWatermillLogger(cfg.NATS.VerboseLogging)

	if cfg.HasRole(config.RolePipeline) {
		if err := w.pipeline(ctx, cfg, bc, tree); err != nil {
			w.Close()
			return nil, fmt.Errorf("pipeline role: %w", err)
		}
	}
	if cfg.HasRole(config.RoleEmail) {
		if err := w.email(cfg, bc, tree, wmLogger); err != nil {
			w.Close()
			return nil, fmt.Errorf("email role: %w", err)
		}
	}
	if cfg.HasRole(config.RoleWebsocket) {
		if err := w.websocket(cfg, bc, tree, wmLogger); err != nil {
			w.Close()
			return nil, fmt.Errorf("websocket role: %w", err)
		}
	}
	if cfg.HasRole(config.RoleAPI) {
		w.api(cfg, bc, tree)
	}
	return w, nil
}

func (w *roleWiring) pipeline(ctx context.Context, cfg *config.Config, bc *BrokerComponents, tree *supervisor.SupervisorTree) error {
	marks, err := dedup.Open(ctx, &cfg.Dedup, bc.js)
	if err != nil {
		return err
	}
	w.track(marks)

	if gc, ok := marks.(dedup.GarbageCollector); ok && cfg.Dedup.GCSchedule != "" {
		sched, err := dedup.NewGCScheduler(gc, cfg.Dedup.GCSchedule, cfg.Dedup.GCDiscardRatio)
		if err != nil {
			return err
		}
		tree.AddDataService(sched)
	}

	sqlStore, err := templates.OpenSQLStore(ctx, &cfg.Templates, templateStoreWait)
	if err != nil {
		return err
	}
	w.track(sqlStore)

	var tmpl templates.Store = sqlStore
	if cfg.Templates.CacheTTL > 0 {
		tmpl = templates.NewCachedStore(sqlStore, cfg.Templates.CacheTTL)
	}

	users := recipients.NewClient(&cfg.Recipients, &http.Client{Timeout: cfg.Recipients.Timeout})

	extractor, err := pipeline.NewExtractor(ctx, bc.js, pipeline.ExtractorConfig{
		Stream:        cfg.NATS.NoticeStream,
		Subject:       cfg.Pipeline.IngestSubject,
		Durable:       cfg.Pipeline.Durable,
		AckWait:       cfg.Pipeline.AckWait,
		FetchWait:     cfg.Pipeline.FetchWait,
		MaxDeliver:    -1,
		MaxAckPending: 1,
	})
	if err != nil {
		return err
	}

	transformer := pipeline.NewTransformer(tmpl, marks, users, cfg.Pipeline.BatchSize, cfg.Pipeline.MarkBuffer)
	loader := pipeline.NewLoader(bc.publisher, marks, cfg.Pipeline.SubjectPrefix, cfg.Pipeline.MarkBuffer)
	controller := pipeline.NewController(extractor, transformer, loader, pipeline.ControllerConfig{
		IdleSleep:      cfg.Pipeline.IdleSleep,
		FailureBackoff: cfg.Pipeline.FailureBackoff,
		AckWait:        cfg.Pipeline.AckWait,
	})
	tree.AddDeliveryService(controller)

	logging.Info().
		Str("dedup_backend", cfg.Dedup.Backend).
		Str("template_driver", cfg.Templates.Driver).
		Msg("pipeline role wired")
	return nil
}

func (w *roleWiring) email(cfg *config.Config, bc *BrokerComponents, tree *supervisor.SupervisorTree, wmLogger watermill.LoggerAdapter) error {
	workerCfg, err := email.WorkerConfigFrom(&cfg.Email)
	if err != nil {
		return err
	}
	provider, err := email.NewProvider(&cfg.Email, &http.Client{Timeout: cfg.Email.Timeout})
	if err != nil {
		return err
	}

	subCfg := broker.DefaultSubscriberConfig(bc.URL(), cfg.NATS.DeliveryStream, cfg.Email.Durable)
	subCfg.QueueGroup = cfg.Email.QueueGroup
	sub, err := broker.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		return err
	}
	w.track(sub)

	pub, err := broker.NewPublisher(broker.DefaultPublisherConfig(bc.URL()), wmLogger)
	if err != nil {
		return err
	}
	w.track(pub)

	// The retry subject holds each message for RetryInterval, so its ack
	// deadline must outlast the hold.
	retryCfg := broker.DefaultSubscriberConfig(bc.URL(), cfg.NATS.DeliveryStream, cfg.Email.Durable+"-retry")
	retryCfg.AckWaitTimeout = cfg.Email.RetryInterval + 30*time.Second
	retrySub, err := broker.NewSubscriber(&retryCfg, wmLogger)
	if err != nil {
		return err
	}
	w.track(retrySub)

	tree.AddDeliveryService(email.NewWorker(sub, pub, provider, workerCfg))
	tree.AddDeliveryService(broker.NewDelayForwarder(retrySub, pub, cfg.Email.RetrySubject))

	logging.Info().
		Str("provider", cfg.Email.Provider).
		Str("subject", cfg.Email.Subject).
		Int("max_retries", cfg.Email.MaxRetries).
		Msg("email role wired")
	return nil
}

func (w *roleWiring) websocket(cfg *config.Config, bc *BrokerComponents, tree *supervisor.SupervisorTree, wmLogger watermill.LoggerAdapter) error {
	tokens, err := auth.NewJWTManager(cfg.Websocket.JWTSecret, 0)
	if err != nil {
		return err
	}

	subCfg := broker.DefaultSubscriberConfig(bc.URL(), cfg.NATS.DeliveryStream, cfg.Websocket.Durable)
	subCfg.DeliverAll = false
	subCfg.MaxDeliver = 1
	subCfg.MaxAckPending = 256
	sub, err := broker.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		return err
	}
	w.track(sub)

	hub := ws.NewHub(0)
	srv := ws.NewServer(hub, tokens, ws.ServerConfigFrom(&cfg.Websocket))
	httpSrv := &http.Server{
		Addr:              cfg.Websocket.Addr(),
		Handler:           srv.Routes(cfg.Websocket.Path),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddDeliveryService(services.NewWebSocketHubService(hub))
	tree.AddDeliveryService(ws.NewFanOut(hub, broker.NewLaneSubscriber(sub), cfg.Websocket.Subject))
	tree.AddAPIService(services.NewHTTPServerService("websocket-http", httpSrv, cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", httpSrv.Addr).
		Str("path", cfg.Websocket.Path).
		Str("subject", cfg.Websocket.Subject).
		Msg("websocket role wired")
	return nil
}

func (w *roleWiring) api(cfg *config.Config, bc *BrokerComponents, tree *supervisor.SupervisorTree) {
	handler := api.NewHandler(bc.publisher, api.HandlerConfig{
		Subject:       cfg.Pipeline.IngestSubject,
		DefaultExpiry: cfg.API.DefaultExpiry,
	}, map[string]api.ReadinessCheck{
		"nats": bc.Ready,
	})

	httpSrv := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.API))),
		ReadTimeout:  cfg.API.Timeout,
		WriteTimeout: cfg.API.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService("api-http", httpSrv, cfg.Server.ShutdownTimeout))

	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("ingress rate limiting is disabled")
	}
	logging.Info().Str("addr", httpSrv.Addr).Msg("api role wired")
}
