// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package broker wraps NATS JetStream for Herald's queues.
//
// Two streams carry all traffic:
//
//	NOTICES   notice              ingest requests
//	DELIVERY  delivery.>          per-transport queues and delivery.email.retry
//
// Both streams allow per-message TTLs (the Nats-TTL header), which replaces
// the per-message expiration of the queues the pipeline publishes to.
//
// JetStream has no message priority. The notice priority travels in the
// Herald-Priority header and is used by consumers (the email worker's send
// window), not by the broker for ordering.
//
// Publishing comes in two flavours:
//
//   - StreamPublisher publishes natively with jetstream options (message id,
//     TTL). The pipeline loader and the ingress API use it.
//   - Publisher wraps a watermill-nats publisher for consumers that already
//     hold a watermill message (email retries, the delay forwarder).
//
// Subscriber wraps a watermill-nats JetStream subscriber bound to an existing
// stream. DelayForwarder implements a fixed-delay retry queue on top of it.
//
// # Errors
//
// RetryableError and PermanentError classify failures with an ErrorCategory.
// Circuit breakers (sony/gobreaker) guard every publish.
package broker
