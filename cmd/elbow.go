package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

var (
	elbowLoad loadFlags
	elbowMaxK int
	elbowSeed int64
	elbowPNG  string
	elbowJSON bool
)

var elbowCmd = &cobra.Command{
	Use:   "elbow [file]",
	Short: "Print the k-means inertia curve for k = 1..max-k",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		path, err := resolveInput(cmd, args, c)
		if err != nil {
			return err
		}
		opt, err := elbowLoad.options(c)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd, path, opt)
		if err != nil {
			return err
		}
		fm, err := cluster.SelectNumericFeatures(ds)
		if err != nil {
			return err
		}
		scaled, err := cluster.Standardize(fm)
		if err != nil {
			return err
		}
		maxK := c.ElbowMaxK
		if cmd.Flags().Changed("max-k") {
			maxK = elbowMaxK
		}
		seed := c.Seed
		if cmd.Flags().Changed("seed") {
			seed = elbowSeed
		}
		points, err := cluster.Elbow(scaled, maxK, seed)
		if err != nil {
			return fmt.Errorf("elbow %s: %w", path, err)
		}

		out := cmd.OutOrStdout()
		if elbowJSON {
			b, err := utils.PrettyJSON(points)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "k\tinertia")
			for _, p := range points {
				fmt.Fprintf(tw, "%d\t%.4f\n", p.K, p.Inertia)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}

		if elbowPNG != "" {
			p, err := report.ElbowPlot(points)
			if err != nil {
				return err
			}
			if err := report.SavePNG(p, elbowPNG); err != nil {
				return fmt.Errorf("write elbow plot: %w", err)
			}
			okf(cmd, "Wrote elbow plot to %s", elbowPNG)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(elbowCmd)
	elbowLoad.bind(elbowCmd)
	f := elbowCmd.Flags()
	f.IntVar(&elbowMaxK, "max-k", cluster.DefaultElbowMaxK, "largest k to try")
	f.Int64Var(&elbowSeed, "seed", 0, "k-means random seed")
	f.StringVar(&elbowPNG, "png", "", "also write the curve as a PNG image")
	f.BoolVar(&elbowJSON, "json", false, "print the curve as JSON")
}
