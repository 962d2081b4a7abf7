package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/history"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent clustering runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyJSON {
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded yet.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tDATASET\tALGORITHM\tROWS\tCLUSTERS\tNOISE\tSILHOUETTE")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Dataset, r.Algorithm,
				r.Rows, r.Clusters, r.Noise, silhouetteCell(r.Silhouette))
		}
		return tw.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.Get(cmd.Context(), args[0])
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no run with id %s", args[0])
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID: %s\n", run.ID)
		fmt.Fprintf(out, "When: %s\n", run.CreatedAt.Local().Format(time.RFC3339))
		fmt.Fprintf(out, "Dataset: %s\n", run.Dataset)
		fmt.Fprintf(out, "Algorithm: %s (%s)\n", run.Algorithm, report.FormatParams(run.Params))
		fmt.Fprintf(out, "Features: %v\n", run.Features)
		fmt.Fprintf(out, "Rows: %d, clusters: %d, noise: %d\n", run.Rows, run.Clusters, run.Noise)
		fmt.Fprintf(out, "Silhouette: %s\n", silhouetteCell(run.Silhouette))
		for _, s := range run.Sizes {
			fmt.Fprintf(out, "- %s: %d rows\n", report.LabelName(s.Label), s.Size)
		}
		return nil
	},
}

func openHistory() (*history.Store, error) {
	c := currentConfig()
	if c.HistoryDB == "" {
		return nil, errors.New("history_db is not configured")
	}
	return history.Open(utils.ExpandHome(c.HistoryDB))
}

func silhouetteCell(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *s)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print runs as JSON")
}
