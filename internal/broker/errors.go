// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"errors"
	"strings"
)

var (
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrInvalidConfig is returned for incomplete broker configuration.
	ErrInvalidConfig = errors.New("invalid broker configuration")

	// ErrMissingRetryTarget is returned for a retry message without a target subject.
	ErrMissingRetryTarget = errors.New("retry message has no target subject")
)

// ErrorCategory classifies a failure for logging and metrics.
type ErrorCategory int

const (
	ErrorCategoryUnknown ErrorCategory = iota
	ErrorCategoryConnection
	ErrorCategoryTimeout
	ErrorCategoryValidation
	ErrorCategoryStorage
	ErrorCategoryUpstream
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryConnection:
		return "connection"
	case ErrorCategoryTimeout:
		return "timeout"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryStorage:
		return "storage"
	case ErrorCategoryUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// RetryableError is a transient failure. The message it concerns should be
// redelivered later.
type RetryableError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewRetryableError creates a retryable error, categorized from message and cause.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{
		Message:  message,
		Cause:    cause,
		Category: categorize(message, cause),
	}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error { return e.Cause }

// PermanentError is a failure that redelivery cannot fix, such as a
// malformed payload.
type PermanentError struct {
	Message  string
	Cause    error
	Category ErrorCategory
}

// NewPermanentError creates a permanent error. Uncategorized permanent
// errors default to validation.
func NewPermanentError(message string, cause error) *PermanentError {
	category := categorize(message, cause)
	if category == ErrorCategoryUnknown {
		category = ErrorCategoryValidation
	}
	return &PermanentError{
		Message:  message,
		Cause:    cause,
		Category: category,
	}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsPermanent reports whether err wraps a PermanentError.
func IsPermanent(err error) bool {
	var target *PermanentError
	return errors.As(err, &target)
}

// CategoryOf returns the category of a classified error, or unknown.
func CategoryOf(err error) ErrorCategory {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return retryable.Category
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return permanent.Category
	}
	return ErrorCategoryUnknown
}

func categorize(message string, cause error) ErrorCategory {
	text := strings.ToLower(message)
	if cause != nil {
		text += " " + strings.ToLower(cause.Error())
	}
	switch {
	case containsAny(text, "timeout", "deadline", "timed out"):
		return ErrorCategoryTimeout
	case containsAny(text, "connection", "connect", "refused", "reset", "network", "no responders"):
		return ErrorCategoryConnection
	case containsAny(text, "invalid", "validation", "malformed", "parse", "unmarshal", "decode"):
		return ErrorCategoryValidation
	case containsAny(text, "badger", "sql", "query", "database", "kv"):
		return ErrorCategoryStorage
	case containsAny(text, "status", "upstream", "provider", "circuit breaker"):
		return ErrorCategoryUpstream
	default:
		return ErrorCategoryUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
