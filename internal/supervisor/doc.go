// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package supervisor runs Herald's long-lived services under a suture v4
supervisor tree.

The tree has three layers so a failure in one does not restart the others:

	RootSupervisor ("herald")
	├── DataSupervisor ("data-layer")
	│   └── dedup GC scheduler (badger backend only)
	├── DeliverySupervisor ("delivery-layer")
	│   ├── pipeline controller          (role: pipeline)
	│   ├── email worker                 (role: email)
	│   ├── delay forwarder              (role: email)
	│   ├── WebSocketHubService          (role: websocket)
	│   └── websocket fan-out            (role: websocket)
	└── APISupervisor ("api-layer")
	    ├── HTTPServerService "api-http"       (role: api)
	    └── HTTPServerService "websocket-http" (role: websocket)

Which services are added depends on the configured roles; a process may run
any combination.

# Failure Handling

Each supervisor counts failures with exponential decay. Past
FailureThreshold the supervisor waits FailureBackoff before restarting.
A service returning ctx.Err() after cancellation is a clean stop.

Services are expected to honour context cancellation. Those that do not stop
within ShutdownTimeout are listed by UnstoppedServiceReport.

# Logging

Supervisor events go through sutureslog to a slog.Logger. Herald passes the
zerolog-backed slog adapter from the logging package, so service restarts
appear in the same JSON stream as everything else.

# What Is Not Supervised

The NATS connection, the embedded NATS server and the dedup store are opened
before the tree starts and closed after it stops. Restarting a service must
not tear down resources its siblings share.
*/
package supervisor
