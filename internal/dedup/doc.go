// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package dedup stores delivery marks: the per-recipient state that keeps a
notice from being delivered twice when it is redelivered after a partial
run.

A mark is keyed by (notice id, recipient id) and expires after a TTL that
outlives the notice itself. The sentinel recipient "0" marks the notice as
seen.

Backends:

  - badger: embedded, native per-key TTL, single process. Value-log GC runs
    on a cron schedule (see GCScheduler).
  - nats: a JetStream key-value bucket shared by every pipeline replica.
    Keys use "." in place of ":" and each value carries its own expiry.
  - memory: for tests and development.

Open picks the backend from configuration.
*/
package dedup
