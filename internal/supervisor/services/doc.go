// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package services adapts components whose lifecycle is not already
Serve(ctx) error into suture services.

Most Herald workers (pipeline controller, email worker, delay forwarder,
websocket fan-out, dedup GC scheduler) implement suture.Service directly
and are added to the tree as they are. The wrappers here cover the rest:

  - HTTPServerService: ListenAndServe/Shutdown for the ingress API and the
    websocket endpoint
  - WebSocketHubService: the hub's RunWithContext loop

Wrappers return ctx.Err() on shutdown so suture does not count a requested
stop as a failure.
*/
package services
