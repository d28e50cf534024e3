// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package pipeline turns notices into per-recipient messages.

The Controller runs one notice at a time through three stages:

	Extractor    pull one notice from the ingest stream (durable consumer)
	Transformer  resolve template and recipients, filter, render (lazy iter.Seq2)
	Loader       publish each message to delivery.<transport>, then mark it queued

The inbound notice is acked only after the whole sequence has been loaded.
Any error naks it with a delay so the broker redelivers it; on the next
attempt the delivery marks make the Transformer skip recipients that were
already handled. A crash between publishing a message and writing its mark
can produce one duplicate for that recipient.

Marks live for the notice's remaining lifetime plus a buffer, so a
redelivered notice always finds them while it is still deliverable.
*/
package pipeline
