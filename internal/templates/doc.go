// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package templates loads message templates by id and renders them.
//
// Templates live in a SQL table (id, subject, body) read through
// database/sql with either the duckdb or the sqlite driver. Bodies are Go
// text/template sources rendered against the recipient's user fields merged
// with the notice's extra data, e.g. "Hello {{.username}}". A reference to
// a key absent from that data is a render error.
//
// CachedStore fronts any Store with a short TTL cache; a notice touches its
// template once, but bursts of notices share a few templates.
package templates
