// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package auth validates the tokens presented by live-connection clients.

A client proves who it is by sending an HS256-signed JWT as the first
websocket frame. The token's "sub" claim is the recipient id that messages
are routed by. Tokens are issued elsewhere with the shared secret;
GenerateToken exists for tooling and tests.

Validation rejects:
  - any signing method other than HMAC (alg "none" and RS256 confusion)
  - expired or not-yet-valid tokens
  - tokens without a subject
*/
package auth
