package apperror

import (
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
)

func TestToStatus_Codes(t *testing.T) {
	tests := []struct {
		status int
		want   codes.Code
	}{
		{404, codes.NotFound},
		{401, codes.Unauthenticated},
		{403, codes.PermissionDenied},
		{429, codes.ResourceExhausted},
		{408, codes.DeadlineExceeded},
		{400, codes.InvalidArgument},
		{500, codes.Internal},
		{503, codes.Unavailable},
		{0, codes.Unknown},
	}
	for _, tt := range tests {
		if got := New(tt.status, "x", nil).ToStatus().Code(); got != tt.want {
			t.Errorf("status %d: code = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestToStatus_RetryInfoOnlyWhenRetryable(t *testing.T) {
	hasRetryInfo := func(e *AppError) bool {
		for _, d := range e.ToStatus().Details() {
			if _, ok := d.(*errdetails.RetryInfo); ok {
				return true
			}
		}
		return false
	}

	if !hasRetryInfo(New(503, "x", nil)) {
		t.Error("503 should carry RetryInfo")
	}
	if hasRetryInfo(New(400, "x", nil)) {
		t.Error("400 should not carry RetryInfo")
	}
}

func TestFromStatus_RoundTrip(t *testing.T) {
	orig := New(502, "bad gateway from cms", nil)
	back := FromStatus(orig.ToStatus())

	if back.StatusCode() != 502 {
		t.Errorf("status = %d, want 502", back.StatusCode())
	}
	if back.Message() != "bad gateway from cms" {
		t.Errorf("message = %q", back.Message())
	}
	if back.Kind() != KindServer || !back.Retryable() {
		t.Errorf("unexpected classification: %v retryable=%v", back.Kind(), back.Retryable())
	}
}
