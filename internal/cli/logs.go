package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show persisted severe errors (status >= 500)",
	RunE:  runLogs,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the persisted error log",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(clearCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	entries := app.Logger().GetPersisted(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tTIME\tKIND\tSTATUS\tURL\tMESSAGE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%s\n",
			e.ID,
			e.Timestamp.Format(time.RFC3339),
			e.Error.Kind(),
			e.Error.StatusCode(),
			e.Context["url"],
			truncate(e.Error.Message(), 60),
		)
	}
	_ = w.Flush()
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger().ClearLogs(ctx)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Persisted error log cleared")
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
