// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package models defines the wire and domain types shared by Herald components.

Message flow:

  - Notice: ingest request published on the "notice" subject
  - RenderedMessage: one per recipient, published on delivery.<transport>
  - EmailDelivery: the email worker's view of a RenderedMessage plus retries
  - Mark: the per (notice, recipient) delivery state kept by the dedup store
  - UserInfo: recipient data returned by the auth service

TransportMeta is a sealed union with one variant per transport. MetaFor is
its only constructor; a transport with no variant (push) yields none and the
recipient is marked rejected_missing_data.
*/
package models
