package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"framecloak/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and clean working session directories",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsCleanCommand(ctx))

	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List session directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := session.ListDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return fmt.Errorf("list session directories: %w", err)
			}
			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []session.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"work_dir":         cfg.Paths.WorkDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No session directories found")
				return nil
			}
			fmt.Fprintf(out, "Work directory: %s\n\n", cfg.Paths.WorkDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Second)
				rows = append(rows, []string{dir.Name, formatDuration(age), humanize.IBytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Session", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
				[]string{fmt.Sprintf("%d sessions", len(dirs)), "", humanize.IBytes(uint64(totalSize))},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newSessionsCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale session directories",
		Long: `Remove session directories left behind by interrupted runs.

By default only directories older than sessions.stale_after_minutes are
removed. Use --all to remove every session directory; do not do this while
a server is processing requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			maxAge := cfg.StaleSessionAge()
			if cleanAll {
				maxAge = 0
			}
			result := session.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)

			if ctx.JSONMode() {
				failures := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					failures = append(failures, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				removed := result.Removed
				if removed == nil {
					removed = []string{}
				}
				return writeJSON(cmd, map[string]any{
					"removed": removed,
					"errors":  failures,
				})
			}

			out := cmd.OutOrStdout()
			for _, e := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", e.Path, e.Error)
			}
			switch len(result.Removed) {
			case 0:
				fmt.Fprintln(out, "No stale session directories")
			case 1:
				fmt.Fprintln(out, "Removed 1 session directory")
			default:
				fmt.Fprintf(out, "Removed %d session directories\n", len(result.Removed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all session directories regardless of age")
	return cmd
}
