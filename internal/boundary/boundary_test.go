package boundary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/core/env"
	"github.com/vietddude/retryfetch/internal/errlog"
)

func TestViewFor(t *testing.T) {
	tests := []struct {
		status  int
		title   string
		actions []Action
	}{
		{404, "Page Not Found", []Action{ActionHome}},
		{500, "Server Error", []Action{ActionTryAgain, ActionContact, ActionHome}},
		{503, "Server Error", []Action{ActionTryAgain, ActionRefresh, ActionHome}},
		{429, "Too Many Requests", []Action{ActionTryAgain, ActionCall, ActionHome}},
		{400, "Invalid Request", []Action{ActionContact, ActionHome}},
		{0, "Something Went Wrong", []Action{ActionContact, ActionHome}},
	}

	for _, tt := range tests {
		v := ViewFor(apperror.New(tt.status, "internal detail", nil))
		if v.Title != tt.title {
			t.Errorf("%d: title = %q, want %q", tt.status, v.Title, tt.title)
		}
		if !slices.Equal(v.Actions, tt.actions) {
			t.Errorf("%d: actions = %v, want %v", tt.status, v.Actions, tt.actions)
		}
		if v.Message == "internal detail" {
			t.Errorf("%d: view must show the user message, not the diagnostic one", tt.status)
		}
	}
}

func TestRecover_LogsAndRendersPanic(t *testing.T) {
	logger := errlog.New(env.Noop{})
	handler := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("city template missing")
	}))

	req := httptest.NewRequest(http.MethodGet, "/seo/austin/plumbers", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var view View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Message != apperror.UserMessageFor(500) || !view.Retryable {
		t.Errorf("unexpected view: %+v", view)
	}

	logs := logger.GetLogs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].ID != view.ErrorID {
		t.Errorf("view should reference the log entry id")
	}
	if logs[0].Error.Message() != "city template missing" {
		t.Errorf("unexpected message %q", logs[0].Error.Message())
	}
	if logs[0].Context[errlog.ContextUserAgent] != "test-agent" {
		t.Errorf("request user agent should be recorded, got %v", logs[0].Context)
	}
}

func TestRecover_PassThrough(t *testing.T) {
	logger := errlog.New(env.Noop{})
	handler := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || len(logger.GetLogs()) != 0 {
		t.Errorf("healthy handlers should be untouched")
	}
}

func TestReport_DefaultsToUncaughtStatus(t *testing.T) {
	logger := errlog.New(env.Noop{})
	appErr, entry := Report(context.Background(), logger, 0, "render failed", nil, map[string]any{"page": "/contact"})

	if appErr.StatusCode() != 500 || appErr.FallbackAction() != apperror.FallbackContactForm {
		t.Errorf("unexpected error: %v", appErr)
	}
	logs := logger.GetLogs()
	if len(logs) != 1 || logs[0].ID != entry.ID {
		t.Fatalf("report should log exactly once")
	}
	if logs[0].Context["page"] != "/contact" {
		t.Errorf("report fields should be recorded, got %v", logs[0].Context)
	}
}

func TestRender_StatusAndHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Render(rec, apperror.New(429, "x", nil), "id-1")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("unexpected 429 rendering: %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	Render(rec, apperror.New(0, "x", nil), "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("out-of-range status should render as 500, got %d", rec.Code)
	}
}
