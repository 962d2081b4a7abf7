package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/clusterloom-cli/internal/config"
	"github.com/KaramelBytes/clusterloom-cli/internal/insights"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
)

var (
	clusterLoad loadFlags
	clusterAlgo algoFlags

	clusterFormat        string
	clusterOutput        string
	clusterLabelsCSV     string
	clusterHTML          string
	clusterDendrogramPNG string
	clusterElbow         bool
	clusterInsights      bool
	clusterProvider      string
	clusterModel         string
	clusterNoHistory     bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [file]",
	Short: "Cluster the rows of a dataset and report the segments",
	Long: `Cluster loads a CSV, TSV or XLSX file, standardizes its numeric columns and assigns
every row to a cluster with k-means, DBSCAN or ward hierarchical clustering.

Without a file argument the newest file in uploads_dir is used.`,
	Example: `  clusterloom cluster customers.csv --k 4 --exclude CustomerID
  clusterloom cluster customers.csv --algo dbscan --eps 0.4 --min-samples 4 --html dash.html
  clusterloom cluster customers.csv --algo hierarchical --k 3 --dendrogram-png tree.png
  clusterloom cluster --format json -o result.json --insights --provider ollama`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCluster,
}

func runCluster(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	format := strings.ToLower(clusterFormat)
	if format != "md" && format != "json" {
		return fmt.Errorf("unsupported --format %q (use md or json)", clusterFormat)
	}
	path, err := resolveInput(cmd, args, c)
	if err != nil {
		return err
	}
	opt, err := clusterLoad.options(c)
	if err != nil {
		return err
	}
	ds, err := loadDataset(cmd, path, opt)
	if err != nil {
		return err
	}
	alg, params, err := clusterAlgo.algorithm(cmd, c)
	if err != nil {
		return err
	}
	res, err := cluster.Run(ds, alg)
	if err != nil {
		return fmt.Errorf("cluster %s: %w", path, err)
	}

	var elbow []cluster.ElbowPoint
	if clusterElbow {
		elbow, err = cluster.Elbow(res.Scaled, c.ElbowMaxK, params.Seed)
		if err != nil {
			warnf(cmd, "elbow curve skipped: %v", err)
		}
	}

	md := report.Markdown(res, elbow)
	var commentary string
	if clusterInsights {
		commentary = insights.Describe(res).Markdown()
		if llm := llmInsights(cmd, c, md+"\n"+commentary); llm != "" {
			commentary += "\n[COMMENTARY]\n" + strings.TrimSpace(llm) + "\n"
		}
	}

	var out []byte
	switch format {
	case "json":
		p := report.NewPayload(res, elbow)
		p.Insights = commentary
		out, err = p.JSON()
		if err != nil {
			return err
		}
		out = append(out, '\n')
	default:
		if commentary != "" {
			md += "\n" + commentary
		}
		out = []byte(md)
	}
	if err := writeOrPrint(cmd, clusterOutput, out, "report"); err != nil {
		return err
	}

	if clusterLabelsCSV != "" {
		var buf bytes.Buffer
		if err := report.WriteLabeledCSV(&buf, res.Labeled); err != nil {
			return err
		}
		if err := writeOrPrint(cmd, clusterLabelsCSV, buf.Bytes(), "labeled CSV"); err != nil {
			return err
		}
	}
	if clusterHTML != "" {
		var buf bytes.Buffer
		if err := report.Dashboard(&buf, res, elbow, report.DashboardOptions{}); err != nil {
			return fmt.Errorf("render dashboard: %w", err)
		}
		if err := writeOrPrint(cmd, clusterHTML, buf.Bytes(), "dashboard"); err != nil {
			return err
		}
	}
	if clusterDendrogramPNG != "" {
		if err := saveDendrogram(cmd, res, clusterDendrogramPNG); err != nil {
			return err
		}
	}

	if !clusterNoHistory {
		recordRun(cmd, c, res)
	}
	return nil
}

// dendrogramLeaves caps the leaves drawn in a dendrogram image.
const dendrogramLeaves = 30

func saveDendrogram(cmd *cobra.Command, res *cluster.Result, path string) error {
	merges := res.Assignment.Merges
	if len(merges) == 0 {
		warnf(cmd, "--dendrogram-png needs --algo hierarchical; skipped")
		return nil
	}
	root := cluster.Dendrogram(merges, len(res.Assignment.Labels), dendrogramLeaves)
	p, err := report.DendrogramPlot(root, report.CutHeight(merges, res.Clusters))
	if err != nil {
		return err
	}
	if err := report.SavePNG(p, path); err != nil {
		return fmt.Errorf("write dendrogram: %w", err)
	}
	okf(cmd, "Wrote dendrogram to %s", path)
	return nil
}

// llmInsights asks the configured provider for commentary. An empty provider
// or "none" keeps the rule-based text only; failures are warnings.
func llmInsights(cmd *cobra.Command, c *cfgpkg.Global, body string) string {
	provider := clusterProvider
	if provider == "" {
		provider = c.InsightsProvider
	}
	if provider == "" || strings.EqualFold(provider, "none") {
		return ""
	}
	rt, name, err := buildRuntime(c, runtimeOptions{ProviderFlag: provider})
	if err != nil {
		warnf(cmd, "insights runtime: %v", err)
		return ""
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := time.Duration(c.HTTPTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()
	text, err := insights.Generate(ctx, rt, body, insights.Options{
		Model:            selectModel(c, name, clusterModel),
		MaxTokens:        c.MaxTokens,
		Temperature:      c.Temperature,
		PromptTokenLimit: c.PromptTokenLimit,
	})
	if err != nil {
		warnf(cmd, "%v", err)
		if hint := ai.Hint(err); hint != "" {
			warnf(cmd, "%s", hint)
		}
		return ""
	}
	return text
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterLoad.bind(clusterCmd)
	clusterAlgo.bind(clusterCmd)
	f := clusterCmd.Flags()
	f.StringVar(&clusterFormat, "format", "md", "report format: md or json")
	f.StringVarP(&clusterOutput, "output", "o", "", "write the report to a file instead of stdout")
	f.StringVar(&clusterLabelsCSV, "labels-csv", "", "write the dataset with a Cluster column to this CSV file")
	f.StringVar(&clusterHTML, "html", "", "write an HTML dashboard to this file")
	f.StringVar(&clusterDendrogramPNG, "dendrogram-png", "", "write a dendrogram PNG (hierarchical only)")
	f.BoolVar(&clusterElbow, "elbow", false, "include the k-means elbow curve")
	f.BoolVar(&clusterInsights, "insights", false, "add per-cluster commentary")
	f.StringVar(&clusterProvider, "provider", "", "LLM provider for commentary: openrouter, anthropic, ollama or none")
	f.StringVar(&clusterModel, "model", "", "model name for the commentary provider")
	f.BoolVar(&clusterNoHistory, "no-history", false, "do not record this run in the history database")
}
