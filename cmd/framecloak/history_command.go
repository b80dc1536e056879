package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"framecloak/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var kind string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent encode and decode runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, ok := api.ParseKind(kind)
			if !ok {
				return fmt.Errorf("invalid --kind %q (want encode, decode or all)", kind)
			}
			return ctx.withStack(func(stack *api.Stack, _ *slog.Logger) error {
				entries, err := stack.History.List(cmd.Context(), limit, kinds...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if entries == nil {
						entries = []api.HistoryEntry{}
					}
					return writeJSON(cmd, map[string]any{"entries": entries})
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Kind", "Status", "Started", "Frames", "Chunks", "Result", "Duration"},
					historyRows(entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
					nil,
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (encode, decode)")
	return cmd
}

func historyRows(entries []api.HistoryEntry) [][]string {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			title.String(e.Kind),
			title.String(e.Status),
			formatStarted(e.StartedAt),
			strconv.Itoa(e.Frames),
			strconv.Itoa(e.Chunks),
			historyResult(e),
			formatDuration(time.Duration(e.DurationMS) * time.Millisecond),
		})
	}
	return rows
}

func historyResult(e api.HistoryEntry) string {
	if e.Status == "failed" {
		if e.ErrorKind != "" {
			return "error: " + e.ErrorKind
		}
		return "error"
	}
	if e.Kind == "encode" {
		if e.Dropped > 0 {
			return fmt.Sprintf("%d dropped", e.Dropped)
		}
		return "complete"
	}
	if !e.Found {
		return "no message"
	}
	if !e.Decrypted {
		return "raw (" + e.Strategy + ")"
	}
	return "decrypted (" + e.Strategy + ")"
}

func formatStarted(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
