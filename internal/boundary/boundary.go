package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/errlog"
)

// UncaughtStatus is the status assigned to failures nobody classified.
const UncaughtStatus = http.StatusInternalServerError

// Report normalizes a failure caught by a page error handler and logs it
// with the caller's context fields.
func Report(
	ctx context.Context,
	logger *errlog.Logger,
	statusCode int,
	message string,
	details map[string]any,
	fields map[string]any,
) (*apperror.AppError, errlog.Entry) {
	if statusCode == 0 {
		statusCode = UncaughtStatus
	}
	appErr := apperror.New(statusCode, message, details)
	entry := logger.Log(ctx, appErr, fields)
	return appErr, entry
}

// Recover turns panics in next into a logged 500 AppError rendered as a
// JSON error view.
func Recover(logger *errlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				appErr := apperror.New(UncaughtStatus, fmt.Sprint(rec), map[string]any{
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				})
				entry := logger.Log(r.Context(), appErr, map[string]any{
					errlog.ContextURL:       r.URL.String(),
					errlog.ContextUserAgent: r.UserAgent(),
				})
				slog.Error("Recovered panic", "path", r.URL.Path, "error_id", entry.ID, "panic", rec)
				Render(w, appErr, entry.ID)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Render writes the error view for err as JSON.
func Render(w http.ResponseWriter, err *apperror.AppError, errorID string) {
	view := ViewFor(err)
	view.ErrorID = errorID

	status := err.StatusCode()
	if status < 400 || status > 599 {
		status = UncaughtStatus
	}

	w.Header().Set("Content-Type", "application/json")
	if err.Retryable() && err.StatusCode() == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(view)
}
