// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package api provides the HTTP ingress for notices.

Routes:

	POST /api/v1/publish       validate a notice and put it on the ingest subject
	GET  /api/v1/health/live   liveness probe
	GET  /api/v1/health/ready  readiness probe (broker connection)
	GET  /metrics              Prometheus metrics

A publish request is validated with go-playground/validator. Failures return
400 with a list of field errors:

	{"detail": [{"field": "users_id", "tag": "min", "message": "..."}]}

Accepted notices are published with Nats-Msg-Id set to the notice id, so a
client retrying the same notice within the stream's duplicate window does
not enqueue it twice. The reply is {"status": "Message sent"}.

Middleware, outermost first: request id with logging context, real IP,
panic recovery, CORS, rate limiting (per IP) and request metrics.
*/
package api
