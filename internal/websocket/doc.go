// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package websocket pushes messages to live recipients over websocket.

Components:

  - Server: accepts a connection, authenticates it with the first frame
    (a JWT whose subject is the recipient id) and registers it.
  - Hub: owns the recipient -> connection registry. Register, unregister
    and deliver are events processed by a single goroutine.
  - Client: one connection with a read pump (keepalive) and a write pump.
  - FanOut: consumes delivery.websocket and hands each message to the hub.

Delivery is at most once. A message for a recipient that is not connected,
or whose send buffer is full, is dropped and counted.

	delivery.websocket ──> FanOut ──> Hub ──> Client ──> browser
	                                   ^
	                  Server (auth) ───┘

A recipient has at most one registered connection; a new connection for the
same recipient takes over delivery and the old one stays open until its
peer closes it.
*/
package websocket
