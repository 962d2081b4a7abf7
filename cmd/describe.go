package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/report"
)

var (
	describeLoad   loadFlags
	describeOutput string
)

var describeCmd = &cobra.Command{
	Use:   "describe [file]",
	Short: "Show column typing and a per-column profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		path, err := resolveInput(cmd, args, c)
		if err != nil {
			return err
		}
		opt, err := describeLoad.options(c)
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd, path, opt)
		if err != nil {
			return err
		}
		return writeOrPrint(cmd, describeOutput, []byte(report.ProfileMarkdown(ds)), "profile")
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeLoad.bind(describeCmd)
	describeCmd.Flags().StringVarP(&describeOutput, "output", "o", "", "write the profile to a file instead of stdout")
}
