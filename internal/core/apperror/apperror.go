// Package apperror normalizes raw failures (an HTTP status code plus a
// diagnostic message) into immutable AppError values.
//
// Kind, retryability and the fallback action are pure functions of the
// status code; the message, details and timestamp vary per occurrence.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/vietddude/retryfetch/internal/core/clock"
)

// AppError is the only failure type surfaced by this module.
type AppError struct {
	kind           Kind
	statusCode     int
	message        string
	userMessage    string
	details        map[string]any
	timestamp      time.Time
	retryable      bool
	fallbackAction string
}

// New builds an AppError stamped with the current time. It never fails.
func New(statusCode int, message string, details map[string]any) *AppError {
	return NewWithClock(clock.Real{}, statusCode, message, details)
}

// NewWithClock is New with an injected time source.
func NewWithClock(c clock.Clock, statusCode int, message string, details map[string]any) *AppError {
	return &AppError{
		kind:           KindFor(statusCode),
		statusCode:     statusCode,
		message:        message,
		userMessage:    UserMessageFor(statusCode),
		details:        maps.Clone(details),
		timestamp:      c.Now(),
		retryable:      IsRetryableStatus(statusCode),
		fallbackAction: FallbackFor(statusCode),
	}
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d): %s", e.kind, e.statusCode, e.message)
}

func (e *AppError) Kind() Kind              { return e.kind }
func (e *AppError) StatusCode() int         { return e.statusCode }
func (e *AppError) Message() string         { return e.message }
func (e *AppError) UserMessage() string     { return e.userMessage }
func (e *AppError) Details() map[string]any { return maps.Clone(e.details) }
func (e *AppError) Timestamp() time.Time    { return e.timestamp }
func (e *AppError) Retryable() bool         { return e.retryable }
func (e *AppError) FallbackAction() string  { return e.fallbackAction }

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type wireError struct {
	Kind           Kind           `json:"type"`
	StatusCode     int            `json:"statusCode"`
	Message        string         `json:"message"`
	UserMessage    string         `json:"userMessage"`
	Details        map[string]any `json:"details,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Retryable      bool           `json:"retryable"`
	FallbackAction string         `json:"fallbackAction,omitempty"`
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireError{
		Kind:           e.kind,
		StatusCode:     e.statusCode,
		Message:        e.message,
		UserMessage:    e.userMessage,
		Details:        e.details,
		Timestamp:      e.timestamp,
		Retryable:      e.retryable,
		FallbackAction: e.fallbackAction,
	})
}

// UnmarshalJSON restores a persisted AppError as recorded.
func (e *AppError) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = AppError{
		kind:           w.Kind,
		statusCode:     w.StatusCode,
		message:        w.Message,
		userMessage:    w.UserMessage,
		details:        w.Details,
		timestamp:      w.Timestamp,
		retryable:      w.Retryable,
		fallbackAction: w.FallbackAction,
	}
	return nil
}
