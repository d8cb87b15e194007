package apperror

import (
	"maps"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/vietddude/retryfetch/internal/core/clock"
)

const grpcDomain = "retryfetch"

// grpcRetryDelay is advertised in RetryInfo for retryable errors.
const grpcRetryDelay = time.Second

// GRPCCode maps a kind to the closest gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	switch e.kind {
	case KindNotFound:
		return codes.NotFound
	case KindAuthentication:
		return codes.Unauthenticated
	case KindAuthorization:
		return codes.PermissionDenied
	case KindRateLimit:
		return codes.ResourceExhausted
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindValidation:
		return codes.InvalidArgument
	case KindNetwork:
		return codes.Unavailable
	case KindServer:
		if e.statusCode == 503 {
			return codes.Unavailable
		}
		return codes.Internal
	default:
		return codes.Unknown
	}
}

// ToStatus converts the error into a gRPC status carrying ErrorInfo and,
// for retryable errors, RetryInfo.
func (e *AppError) ToStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.userMessage)

	info := &errdetails.ErrorInfo{
		Reason: e.kind.String(),
		Domain: grpcDomain,
		Metadata: map[string]string{
			"status_code":     strconv.Itoa(e.statusCode),
			"fallback_action": e.fallbackAction,
			"message":         e.message,
		},
	}

	var withDetails *status.Status
	var err error
	if e.retryable {
		withDetails, err = st.WithDetails(info, &errdetails.RetryInfo{
			RetryDelay: durationpb.New(grpcRetryDelay),
		})
	} else {
		withDetails, err = st.WithDetails(info)
	}
	if err != nil {
		return st
	}
	return withDetails
}

var grpcToHTTP = map[codes.Code]int{
	codes.NotFound:          404,
	codes.Unauthenticated:   401,
	codes.PermissionDenied:  403,
	codes.ResourceExhausted: 429,
	codes.DeadlineExceeded:  504,
	codes.InvalidArgument:   400,
	codes.Unavailable:       503,
	codes.Internal:          500,
}

// FromStatus rebuilds an AppError from a gRPC status. The original HTTP
// status is recovered from ErrorInfo when present.
func FromStatus(st *status.Status) *AppError {
	return FromStatusWithClock(clock.Real{}, st, nil)
}

// FromStatusWithClock is FromStatus with an explicit clock. details are
// merged under the grpc_code entry.
func FromStatusWithClock(c clock.Clock, st *status.Status, details map[string]any) *AppError {
	statusCode, ok := grpcToHTTP[st.Code()]
	if !ok {
		statusCode = 0
	}
	message := st.Message()

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != grpcDomain {
			continue
		}
		if code, err := strconv.Atoi(info.GetMetadata()["status_code"]); err == nil {
			statusCode = code
		}
		if m := info.GetMetadata()["message"]; m != "" {
			message = m
		}
	}

	merged := map[string]any{"grpc_code": st.Code().String()}
	maps.Copy(merged, details)
	return NewWithClock(c, statusCode, message, merged)
}
