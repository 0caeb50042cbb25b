package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filesorter/internal/api"
	"filesorter/internal/classify"
	"filesorter/internal/daemon"
	"filesorter/internal/logging"
	"filesorter/internal/store"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and sync classification rules",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules the classifier would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer st.Close()

			set := daemon.StoredRules(cmd.Context(), st, cfg, logging.NewNop())
			stdout := cmd.OutOrStdout()
			if len(set.Rules) == 0 {
				fmt.Fprintln(stdout, "No rules configured; files are sorted by extension")
				return nil
			}
			fmt.Fprintf(stdout, "Source: %s\n", set.Source)
			fmt.Fprint(stdout, renderTable(
				[]column{leftColumn("ID"), leftColumn("Name"), leftColumn("Type"), leftColumn("Match"), pathColumn("Destination"), rightColumn("Priority")},
				ruleRows(set.Rules),
			))
			return nil
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch rules from the classification service now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.SyncRules(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Synced %d rules\n", resp.Synced)
				if resp.Skipped > 0 {
					fmt.Fprintf(out, "Skipped %d invalid rules (see daemon log)\n", resp.Skipped)
				}
				return nil
			})
		},
	}

	rulesCmd.AddCommand(listCmd, syncCmd)
	return rulesCmd
}

func ruleRows(rules []classify.Rule) [][]string {
	rows := make([][]string, 0, len(rules))
	for _, rule := range rules {
		rows = append(rows, []string{
			rule.ID,
			rule.Name,
			string(rule.Kind),
			ruleMatch(rule),
			rule.Destination,
			strconv.Itoa(rule.Priority),
		})
	}
	return rows
}

func ruleMatch(rule classify.Rule) string {
	switch rule.Kind {
	case classify.KindExtension:
		return strings.Join(rule.Condition.Extensions, ", ")
	case classify.KindKeyword:
		match := strings.Join(rule.Condition.Keywords, ", ")
		if rule.Condition.CaseSensitive {
			match += " (case-sensitive)"
		}
		return match
	case classify.KindRegex:
		return rule.Condition.Pattern
	default:
		return ""
	}
}
