package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"framecloak/internal/api"
	"framecloak/internal/config"
	"framecloak/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, directories, keys and the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			deps := api.FromDependencyStatuses(preflight.CheckSystemDeps(cmd.Context(), cfg))
			checks := preflight.RunAll(cmd.Context(), cfg)
			target := strings.TrimSpace(serverURL)
			if target == "" {
				target = serverBaseURL(cfg)
			}
			serverCheck := preflight.CheckServer(cmd.Context(), target)

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"configPath":   ctx.configPath,
					"dependencies": deps,
					"checks":       checks,
					"server":       serverCheck,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			configPath := ctx.configPath
			if !ctx.configExists {
				configPath += " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Config: %s\n\n", configPath)

			printLines(out, renderSectionHeader("Dependencies", colorize))
			printLines(out, dependencyLines(deps, colorize))
			fmt.Fprintln(out)

			printLines(out, renderSectionHeader("Directories and Keys", colorize))
			for _, check := range checks {
				fmt.Fprintln(out, preflightLine(check, statusError, colorize))
			}
			fmt.Fprintln(out)

			printLines(out, renderSectionHeader("Server", colorize))
			fmt.Fprintln(out, renderStatusLine("Address", statusInfo, target, colorize))
			fmt.Fprintln(out, preflightLine(serverCheck, statusWarn, colorize))
			fmt.Fprintln(out, renderStatusLine("Auth token", statusInfo, yesNo(cfg.Server.Token != ""), colorize))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Server base URL (default derived from server.bind)")
	return cmd
}

// serverBaseURL maps the bind address to a URL a local client can reach.
func serverBaseURL(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Server.Bind)
	if err != nil {
		return "http://" + cfg.Server.Bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
