// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package main is the Herald server.

Herald turns notices (one template, many recipients) into per-recipient
messages and delivers them by email or websocket. One binary serves every
part of the system; HERALD_ROLES picks which parts this process runs:

	pipeline   pull notices, render per recipient, publish to transport subjects
	email      send email deliveries, retry through the delay queue
	websocket  accept authenticated connections, push websocket deliveries
	api        HTTP ingress: POST /api/v1/publish

# Application Architecture

	RootSupervisor ("herald")
	├── DataSupervisor ("data-layer")
	│   └── dedup GC scheduler (badger backend)
	├── DeliverySupervisor ("delivery-layer")
	│   ├── pipeline controller
	│   ├── email worker + delay forwarder
	│   └── websocket hub + fan-out
	└── APISupervisor ("api-layer")
	    ├── api-http
	    └── websocket-http

Startup order:

 1. Configuration: koanf (defaults, optional YAML, environment)
 2. Logging: zerolog
 3. NATS: optional embedded server, connection, NOTICES and DELIVERY streams
 4. Roles: stores, clients and workers for each enabled role
 5. Supervisor tree

Shutdown on SIGINT/SIGTERM stops the tree first, then closes stores and
subscribers, then drains the NATS connection and stops the embedded server.

# Example Usage

Everything in one process with an embedded broker:

	export HERALD_ROLES=pipeline,email,websocket,api
	export NATS_EMBEDDED=true
	export WEBSOCKET_JWT_SECRET=$(openssl rand -base64 32)
	./herald

Issue a websocket token for local testing:

	./herald token 0b7e4c1e-6a43-4f0e-9d64-0d7b1c1c2f11
*/
package main
