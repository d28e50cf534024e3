// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
)

var (
	// ErrTemplateNotFound is returned when no template has the requested id.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidTemplate is returned when a stored body does not parse.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Store resolves templates by id.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Template, error)
}

// Template is a parsed message template.
type Template struct {
	ID      uuid.UUID
	Subject string
	Body    string

	tmpl *template.Template
}

// Parse compiles body. Missing keys fail rendering instead of printing
// "<no value>".
func Parse(id uuid.UUID, subject, body string) (*Template, error) {
	t, err := template.New(id.String()).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidTemplate, id, err)
	}
	return &Template{ID: id, Subject: subject, Body: body, tmpl: t}, nil
}

// Render executes the template against data.
func (t *Template) Render(data map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", t.ID, err)
	}
	return sb.String(), nil
}
