// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package testinfra runs real dependencies in containers for integration
// tests. Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// # NATS Container
//
// NATSContainer starts nats-server with JetStream enabled, for tests that
// must exercise a broker outside the process (reconnects, restarts, a real
// network hop) rather than the embedded server:
//
//	func TestAgainstRealBroker(t *testing.T) {
//	    testinfra.RequireDocker(t)
//	    ctx := context.Background()
//
//	    nats, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.TerminateOnCleanup(t, nats)
//
//	    nc, err := broker.Connect(ctx, broker.ConnConfig{URL: nats.URL, Name: "test"})
//	    ...
//	}
//
// Tests skip when no Docker daemon is reachable.
package testinfra
