// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

/*
Package email delivers rendered email messages from the delivery.email queue.

The Worker consumes one message at a time. Low priority messages (priority 0
or 1) are scheduled into the recipient's local send window; the provider
holds them until then. A failed send is republished to the retry subject
with a due time, and the broker's DelayForwarder returns it to the queue
once due. After MaxRetries failed attempts the message is dropped.

Providers:
  - sendgrid: SendGrid v3 mail/send. Only 202 Accepted counts as success.
  - debug: logs the composed message instead of sending it.
*/
package email
