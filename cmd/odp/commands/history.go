package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendatastudio/opendatago/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded execution runs",
		Long: `List recorded datapackage and view runs, most recent first, or show
one run in full (including its captured logs) by ID. Requires history_db
to be set in the CLI config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return fmt.Errorf("no history database configured (set history_db in %s)", defaultConfigFile)
			}

			history, err := openHistory(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer history.Close()

			if len(args) == 1 {
				return showRun(cmd, history, args[0])
			}
			return listRuns(cmd, history, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	return cmd
}

func showRun(cmd *cobra.Command, history *stores.SQLiteStore, id string) error {
	run, err := history.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func listRuns(cmd *cobra.Command, history *stores.SQLiteStore, limit int) error {
	runs, err := history.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTARGET\tSTATUS\tSTARTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Kind, run.Target, run.Status,
			run.StartedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
