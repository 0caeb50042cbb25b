package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"filesorter/internal/api"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, rule and watched folder status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range daemonLines(status, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Watched Folders", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(status.Folders) == 0 {
					fmt.Fprintln(stdout, "No folders configured")
					return nil
				}
				for _, line := range folderLines(status.Folders, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Stop sorting new files until resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if _, err := client.Pause(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sorting paused")
				return nil
			})
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume sorting new files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if _, err := client.Resume(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sorting resumed")
				return nil
			})
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recently sorted files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Actions) == 0 {
					fmt.Fprintln(stdout, "No files sorted yet")
					return nil
				}
				fmt.Fprint(stdout, renderTable(
					[]column{leftColumn("Time"), leftColumn("File"), leftColumn("Category"), leftColumn("Method"), rightColumn("Confidence"), pathColumn("Destination")},
					historyRows(resp.Actions),
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return []*cobra.Command{statusCmd, pauseCmd, resumeCmd, historyCmd}
}

func historyRows(actions []api.Action) [][]string {
	rows := make([][]string, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, []string{
			formatTimestamp(action.Timestamp),
			action.Filename,
			action.Category,
			action.Method,
			strconv.FormatFloat(action.Confidence, 'f', 2, 64),
			action.DestPath,
		})
	}
	return rows
}
