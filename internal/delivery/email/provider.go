// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/herald/internal/config"
)

// Provider names.
const (
	ProviderSendGrid = "sendgrid"
	ProviderDebug    = "debug"
)

// ErrUnknownProvider is returned by NewProvider for an unsupported name.
var ErrUnknownProvider = errors.New("unknown email provider")

// Email is a composed message ready for a provider.
type Email struct {
	MsgID   string
	From    string
	To      string
	Subject string
	HTML    string

	// SendAt asks the provider to hold the message. Zero sends immediately.
	SendAt time.Time
}

// Provider sends email. A nil error means the provider accepted the message.
type Provider interface {
	Send(ctx context.Context, e *Email) error
}

// NewProvider builds the provider selected by cfg.Provider. A nil httpClient
// gets one with cfg.Timeout.
func NewProvider(cfg *config.EmailConfig, httpClient *http.Client) (Provider, error) {
	switch cfg.Provider {
	case ProviderSendGrid:
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Timeout}
		}
		return NewSendGrid(cfg.SendGridURL, cfg.SendGridAPIKey, httpClient), nil
	case ProviderDebug:
		return NewDebugProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
