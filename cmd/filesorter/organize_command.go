package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"filesorter/internal/organize"
	"filesorter/internal/store"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var verbose bool
	cmd := &cobra.Command{
		Use:   "organize [folder...]",
		Short: "Sort the files already in a folder (defaults to the watched folders)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			folders := args
			if len(folders) == 0 {
				folders = cfg.Watch.Folders
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer st.Close()

			logger := cliLogger(verbose)
			sorter := newSorter(cmd.Context(), cfg, st, logger, sorterOptions{})
			org := organize.New(sorter, sorter.Notifier, logger)

			out := cmd.OutOrStdout()
			for i, folder := range folders {
				report, err := org.Run(cmd.Context(), folder, organize.Options{DryRun: dryRun})
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				printReport(cmd, report)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would move without touching files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log each decision to stderr")
	return cmd
}

func printReport(cmd *cobra.Command, report organize.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Folder: %s\n", report.Folder)
	if len(report.Items) == 0 {
		fmt.Fprintln(out, "Nothing to organize")
		return
	}
	fmt.Fprint(out, renderTable(
		[]column{leftColumn("File"), leftColumn("Result"), leftColumn("Category"), pathColumn("Destination / Error")},
		reportRows(report.Items),
	))
	if report.DryRun {
		fmt.Fprintf(out, "Dry run: %d would move, %d skipped, %d failed\n", report.Planned, report.Skipped, report.Failed)
		return
	}
	fmt.Fprintf(out, "Moved %d, skipped %d, failed %d in %s\n", report.Moved, report.Skipped, report.Failed, report.Duration.Round(time.Millisecond))
}

func reportRows(items []organize.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		result := string(item.Action)
		detail := item.Destination
		if item.Err != nil {
			result = "failed"
			detail = item.Err.Error()
		}
		rows = append(rows, []string{filepath.Base(item.Source), result, item.Category, detail})
	}
	return rows
}
