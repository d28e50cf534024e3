// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/herald/internal/broker"
)

// DefaultSendGridURL is the v3 mail/send endpoint.
const DefaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// ErrNotAccepted is returned when SendGrid replies with anything but 202.
var ErrNotAccepted = errors.New("sendgrid did not accept message")

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	SendAt           int64               `json:"send_at,omitempty"`
}

// SendGrid sends through the SendGrid v3 HTTP API.
type SendGrid struct {
	url        string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

// NewSendGrid creates a provider. An empty url uses DefaultSendGridURL.
func NewSendGrid(url, apiKey string, httpClient *http.Client) *SendGrid {
	if url == "" {
		url = DefaultSendGridURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SendGrid{
		url:        url,
		apiKey:     apiKey,
		httpClient: httpClient,
		breaker:    broker.NewCircuitBreaker[struct{}](broker.DefaultCircuitBreakerConfig("sendgrid")),
	}
}

// Send implements Provider.
func (s *SendGrid) Send(ctx context.Context, e *Email) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.send(ctx, e)
	})
	return err
}

func (s *SendGrid) send(ctx context.Context, e *Email) error {
	mail := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: e.To}}}},
		From:             sgAddress{Email: e.From},
		Subject:          e.Subject,
		Content:          []sgContent{{Type: "text/html", Value: e.HTML}},
	}
	if !e.SendAt.IsZero() {
		mail.SendAt = e.SendAt.Unix()
	}

	body, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("encode sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrNotAccepted, resp.StatusCode, bytes.TrimSpace(detail))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}
