// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package models

// Transport names a delivery channel. It is also the suffix of the
// delivery subject (delivery.<transport>).
type Transport string

const (
	TransportEmail     Transport = "email"
	TransportSMS       Transport = "sms"
	TransportWebsocket Transport = "websocket"
	TransportPush      Transport = "push"
)

// Transports lists every transport accepted at ingest.
var Transports = []Transport{TransportEmail, TransportSMS, TransportWebsocket, TransportPush}

// Valid reports whether t is a known transport.
func (t Transport) Valid() bool {
	for _, known := range Transports {
		if t == known {
			return true
		}
	}
	return false
}

func (t Transport) String() string { return string(t) }

// TransportMeta is the per-transport contact data carried as msg_meta.
// Only types in this package implement it.
type TransportMeta interface {
	Transport() Transport
	sealed()
}

// EmailMeta addresses an email.
type EmailMeta struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject"`
}

// SMSMeta addresses a text message.
type SMSMeta struct {
	Phone string `json:"phone"`
}

// WebsocketMeta is empty: the recipient id in the message is the address.
type WebsocketMeta struct{}

func (EmailMeta) Transport() Transport     { return TransportEmail }
func (SMSMeta) Transport() Transport       { return TransportSMS }
func (WebsocketMeta) Transport() Transport { return TransportWebsocket }

func (EmailMeta) sealed()     {}
func (SMSMeta) sealed()       {}
func (WebsocketMeta) sealed() {}

// MetaFor builds the metadata for sending to user over transport.
// It returns false when the user lacks the required contact data or the
// transport has no metadata variant.
func MetaFor(transport Transport, user *UserInfo, subject string) (TransportMeta, bool) {
	switch transport {
	case TransportEmail:
		if user.Email == "" {
			return nil, false
		}
		return EmailMeta{Email: user.Email, Subject: subject}, true
	case TransportSMS:
		if user.Phone == "" {
			return nil, false
		}
		return SMSMeta{Phone: user.Phone}, true
	case TransportWebsocket:
		return WebsocketMeta{}, true
	default:
		return nil, false
	}
}
