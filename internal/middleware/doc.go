// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package middleware provides HTTP instrumentation shared by the ingress API.

PrometheusMetrics records request counts and latencies. Requests routed by
chi are labelled with the route pattern rather than the raw path, which keeps
label cardinality bounded.
*/
package middleware
