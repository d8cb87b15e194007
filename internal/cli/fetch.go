package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/retryfetch/internal/boundary"
	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/errlog"
	"github.com/vietddude/retryfetch/internal/infra/fetch"
)

var (
	fetchMethod     string
	fetchData       string
	fetchHeaders    []string
	fetchMaxRetries int
	fetchBaseDelay  string
	fetchMaxDelay   string
	fetchStatuses   []int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Issue one request with retries and print the JSON result or the error view",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", http.MethodGet, "HTTP method")
	fetchCmd.Flags().StringVarP(&fetchData, "data", "d", "", "request body")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", nil, "request header (Key: Value)")
	fetchCmd.Flags().IntVar(&fetchMaxRetries, "max-retries", -1, "override retry count (-1 = config)")
	fetchCmd.Flags().StringVar(&fetchBaseDelay, "base-delay", "", "override base backoff (e.g. 500ms)")
	fetchCmd.Flags().StringVar(&fetchMaxDelay, "max-delay", "", "override max backoff (e.g. 10s)")
	fetchCmd.Flags().IntSliceVar(&fetchStatuses, "retry-on", nil, "override retryable statuses")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	req, overrides, err := buildFetchRequest()
	if err != nil {
		return err
	}

	result, err := fetch.FetchJSON[json.RawMessage](ctx, app.Handler(), args[0], req, overrides...)
	return writeFetchResult(cmd.OutOrStdout(), app.Logger(), result, err)
}

// writeFetchResult prints the payload, or the error with its view. A failed
// fetch is returned so the command exits non-zero after cleanup.
func writeFetchResult(w io.Writer, logger *errlog.Logger, result json.RawMessage, err error) error {
	out := json.NewEncoder(w)
	out.SetIndent("", "  ")

	if err == nil {
		return out.Encode(result)
	}
	appErr, ok := apperror.As(err)
	if !ok {
		return err
	}
	view := boundary.ViewFor(appErr)
	if logs := logger.GetLogs(); len(logs) > 0 {
		view.ErrorID = logs[0].ID
	}
	if encErr := out.Encode(map[string]any{"error": appErr, "view": view}); encErr != nil {
		return encErr
	}
	return fmt.Errorf("fetch failed: %w", appErr)
}

func buildFetchRequest() (fetch.Request, []fetch.RetryOption, error) {
	req := fetch.Request{Method: strings.ToUpper(fetchMethod), Header: http.Header{}}
	if fetchData != "" {
		req.Body = []byte(fetchData)
	}
	for _, h := range fetchHeaders {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return req, nil, fmt.Errorf("invalid header %q, expected Key: Value", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	var overrides []fetch.RetryOption
	if fetchMaxRetries >= 0 {
		overrides = append(overrides, fetch.MaxRetries(fetchMaxRetries))
	}
	if fetchBaseDelay != "" {
		d, err := parseDuration("base-delay", fetchBaseDelay)
		if err != nil {
			return req, nil, err
		}
		overrides = append(overrides, fetch.BaseDelay(d))
	}
	if fetchMaxDelay != "" {
		d, err := parseDuration("max-delay", fetchMaxDelay)
		if err != nil {
			return req, nil, err
		}
		overrides = append(overrides, fetch.MaxDelay(d))
	}
	if len(fetchStatuses) > 0 {
		overrides = append(overrides, fetch.RetryableStatuses(fetchStatuses...))
	}
	return req, overrides, nil
}
