// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package config loads Herald configuration.

Sources are layered with koanf, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml or /etc/herald/config.yaml
 3. Environment variables, mapped explicitly in envMappings

Validation is role-aware. A process running only the email role does not
need AUTH_SERVICE_URL or WEBSOCKET_JWT_SECRET.

Example YAML:

	server:
	  roles: [pipeline, email]
	nats:
	  url: nats://nats:4222
	  embedded: false
	email:
	  provider: sendgrid
	  window_start: "09:00"
	  window_end: "21:00"
*/
package config
