// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package metrics registers Herald's Prometheus metrics.

All collectors are created with promauto on the default registry and exposed
by the ingress router at GET /metrics. Components call the Record* helpers
rather than touching collectors directly.

Metric families:

  - herald_pipeline_*: notices processed, messages queued, marks written
  - herald_recipients_*: auth service lookups
  - herald_templates_*: template cache efficiency
  - herald_email_*: delivery attempts, retries, forwarded retries
  - herald_websocket_*: live connections and fan-out results
  - herald_nats_*: publishes by subject
  - herald_api_*: ingress requests
  - herald_circuit_breaker_*: breaker state and transitions
  - herald_dedup_*: badger value-log GC runs
*/
package metrics
