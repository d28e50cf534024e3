// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package recipients resolves recipient ids to contact data and
// preferences through the auth service user-info endpoint.
//
// The request is POST {url}{path} with body {"user_ids": [...]}, the shared
// secret in Authorization and the notice's request id in X-Request-Id. The
// reply is {"users_info": [...]}. Ids the service does not know are simply
// absent from the reply. Any non-200 status, network failure or undecodable
// body is an error for the whole batch.
//
// Calls are rate limited (golang.org/x/time/rate) and guarded by a circuit
// breaker so a failing auth service sheds load quickly.
package recipients
