package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"filesorter/internal/engine"
	"filesorter/internal/store"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var localOnly bool
	var verbose bool
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Show where a file would be sorted without moving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer st.Close()

			sorter := newSorter(cmd.Context(), cfg, st, cliLogger(verbose), sorterOptions{localOnly: localOnly})
			outcome, err := sorter.Plan(cmd.Context(), path)
			if err != nil {
				return err
			}
			printPlan(cmd, outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&localOnly, "local", false, "Use local rules only, never contact the service")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log classifier decisions to stderr")
	return cmd
}

func printPlan(cmd *cobra.Command, outcome engine.Outcome) {
	out := cmd.OutOrStdout()
	result := outcome.Result
	fmt.Fprintf(out, "File:        %s\n", outcome.Source)
	fmt.Fprintf(out, "Category:    %s\n", result.Category)
	fmt.Fprintf(out, "Method:      %s\n", result.Method)
	fmt.Fprintf(out, "Confidence:  %.2f\n", result.Confidence)
	if result.RuleID != "" {
		rule := result.RuleID
		if result.RuleName != "" {
			rule = fmt.Sprintf("%s (%s)", result.RuleName, result.RuleID)
		}
		fmt.Fprintf(out, "Rule:        %s\n", rule)
	}
	fmt.Fprintf(out, "On conflict: %s\n", result.ConflictStrategy)
	switch outcome.Action {
	case engine.ActionSkipped:
		if outcome.Destination == "" {
			fmt.Fprintln(out, "Destination: already in place")
		} else {
			fmt.Fprintf(out, "Destination: %s exists, file would be skipped\n", outcome.Destination)
		}
	default:
		fmt.Fprintf(out, "Destination: %s\n", outcome.Destination)
	}
}
