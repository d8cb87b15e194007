package apperror

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/retryfetch/internal/core/clock"
)

func TestNew_DocumentedStatuses(t *testing.T) {
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
		fallback  string
	}{
		{400, KindValidation, false, FallbackContactSupport},
		{401, KindAuthentication, false, FallbackContactSupport},
		{403, KindAuthorization, false, FallbackContactSupport},
		{404, KindNotFound, false, FallbackGoHome},
		{408, KindTimeout, true, FallbackContactSupport},
		{429, KindRateLimit, true, FallbackCallSupport},
		{500, KindServer, true, FallbackContactForm},
		{502, KindServer, true, FallbackContactSupport},
		{503, KindServer, true, FallbackTryLater},
		{504, KindTimeout, true, FallbackContactSupport},
	}

	seen := make(map[string]int)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			e := New(tt.status, "boom", nil)
			if e.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", e.Kind(), tt.kind)
			}
			if e.UserMessage() != userMessages[tt.status] {
				t.Errorf("userMessage = %q, want %q", e.UserMessage(), userMessages[tt.status])
			}
			if e.UserMessage() == GenericUserMessage {
				t.Errorf("status %d should have a dedicated message", tt.status)
			}
			if e.Retryable() != tt.retryable {
				t.Errorf("retryable = %v, want %v", e.Retryable(), tt.retryable)
			}
			if e.FallbackAction() != tt.fallback {
				t.Errorf("fallbackAction = %q, want %q", e.FallbackAction(), tt.fallback)
			}
			if e.StatusCode() != tt.status || e.Message() != "boom" {
				t.Errorf("unexpected status/message: %d %q", e.StatusCode(), e.Message())
			}
		})
		msg := UserMessageFor(tt.status)
		if other, dup := seen[msg]; dup {
			t.Errorf("statuses %d and %d share a user message", other, tt.status)
		}
		seen[msg] = tt.status
	}
}

func TestNew_UnmappedStatus(t *testing.T) {
	e := New(999, "weird", nil)
	if e.Kind() != KindUnknown {
		t.Errorf("kind = %v, want %v", e.Kind(), KindUnknown)
	}
	if e.UserMessage() != GenericUserMessage {
		t.Errorf("userMessage = %q, want generic", e.UserMessage())
	}
	if e.Retryable() {
		t.Error("999 must not be retryable")
	}
	if e.FallbackAction() != FallbackContactSupport {
		t.Errorf("fallbackAction = %q, want %q", e.FallbackAction(), FallbackContactSupport)
	}
}

func TestNew_ZeroStatus(t *testing.T) {
	e := New(0, "Network error", nil)
	if e.Kind() != KindUnknown {
		t.Errorf("kind = %v, want %v", e.Kind(), KindUnknown)
	}
	if e.Retryable() {
		t.Error("status 0 must not be retryable")
	}
	if e.UserMessage() != GenericUserMessage {
		t.Errorf("userMessage = %q, want generic", e.UserMessage())
	}
}

func TestKindFor_Ranges(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{0, KindUnknown},
		{200, KindUnknown},
		{302, KindUnknown},
		{405, KindValidation},
		{422, KindValidation},
		{499, KindValidation},
		{501, KindServer},
		{599, KindServer},
		{600, KindUnknown},
		{999, KindUnknown},
		{-1, KindUnknown},
	}
	for _, tt := range tests {
		if got := KindFor(tt.status); got != tt.want {
			t.Errorf("KindFor(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNew_SameStatusSameClassification(t *testing.T) {
	a := New(503, "first", map[string]any{"attempt": 0})
	b := New(503, "second", map[string]any{"attempt": 3})
	if a.Kind() != b.Kind() || a.Retryable() != b.Retryable() || a.FallbackAction() != b.FallbackAction() {
		t.Error("classification must depend on status code only")
	}
}

func TestNewWithClock_Timestamp(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	e := NewWithClock(clock.NewFake(now), 500, "x", nil)
	if !e.Timestamp().Equal(now) {
		t.Errorf("timestamp = %v, want %v", e.Timestamp(), now)
	}
}

func TestDetails_DefensiveCopy(t *testing.T) {
	details := map[string]any{"url": "https://example.com"}
	e := New(500, "x", details)

	details["url"] = "mutated"
	if e.Details()["url"] != "https://example.com" {
		t.Error("input details must be copied")
	}

	got := e.Details()
	got["url"] = "mutated"
	if e.Details()["url"] != "https://example.com" {
		t.Error("returned details must be a copy")
	}
}

func TestAs(t *testing.T) {
	e := New(404, "missing", nil)
	wrapped := fmt.Errorf("loading page: %w", e)

	got, ok := As(wrapped)
	if !ok || got != e {
		t.Fatalf("As failed to extract AppError: %v %v", got, ok)
	}
	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As must not match plain errors")
	}
}

func TestJSON_PersistedShape(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	e := NewWithClock(clock.NewFake(now), 503, "upstream down", map[string]any{"url": "/api/leads"})

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["type"] != "SERVER_ERROR" {
		t.Errorf("type = %v, want SERVER_ERROR", raw["type"])
	}
	if raw["fallbackAction"] != FallbackTryLater {
		t.Errorf("fallbackAction = %v", raw["fallbackAction"])
	}

	var back AppError
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind() != KindServer || back.StatusCode() != 503 || !back.Timestamp().Equal(now) {
		t.Errorf("restored error mismatch: %+v", back.Error())
	}
}
