package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/clusterloom-cli/internal/config"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/KaramelBytes/clusterloom-cli/internal/history"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

// loadFlags are the dataset flags shared by cluster, elbow and describe.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	missing    string
	exclude    []string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (l *loadFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&l.delimiter, "delimiter", "", "CSV delimiter: ',', ';', 'tab' or '|' (default: sniffed)")
	f.StringVar(&l.decimal, "decimal", "", "decimal separator: '.' or 'comma' (default: auto)")
	f.StringVar(&l.thousands, "thousands", "", "thousands separator: ',', '.' or 'space' (default: auto)")
	f.StringVar(&l.missing, "missing", "", "missing numeric values: drop, mean or keep (default from config)")
	f.StringSliceVar(&l.exclude, "exclude", nil, "columns never used as features (e.g. an id column)")
	f.StringVar(&l.sheetName, "sheet-name", "", "XLSX sheet name")
	f.IntVar(&l.sheetIndex, "sheet-index", 0, "XLSX sheet index (1-based)")
	f.IntVar(&l.maxRows, "max-rows", 0, "read at most this many data rows (0 = all)")
}

func (l *loadFlags) options(c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = l.maxRows
	opt.Exclude = l.exclude
	opt.SheetName = l.sheetName
	opt.SheetIndex = l.sheetIndex
	switch strings.ToLower(l.delimiter) {
	case "":
	case ",", "comma":
		opt.Delimiter = ','
	case ";", "semicolon":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", l.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(l.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", l.decimal)
	}
	switch strings.ToLower(l.thousands) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", l.thousands)
	}
	missing := l.missing
	if missing == "" {
		missing = c.Missing
	}
	p, err := dataset.ParseMissingPolicy(missing)
	if err != nil {
		return opt, err
	}
	opt.Missing = p
	return opt, nil
}

// resolveInput returns args[0] or, without arguments, the newest file in the
// uploads folder.
func resolveInput(cmd *cobra.Command, args []string, c *cfgpkg.Global) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	p, err := dataset.LatestUpload(utils.ExpandHome(c.UploadsDir), c.UploadPattern)
	if err != nil {
		return "", err
	}
	okf(cmd, "Using latest upload %s", p)
	return p, nil
}

func loadDataset(cmd *cobra.Command, path string, opt dataset.Options) (*dataset.Dataset, error) {
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	if ds.DroppedRows > 0 {
		warnf(cmd, "dropped %d rows with missing numeric values", ds.DroppedRows)
	}
	return ds, nil
}

// algoFlags are the clustering parameter flags.
type algoFlags struct {
	algo       string
	k          int
	eps        float64
	minSamples int
	seed       int64
}

func (a *algoFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.algo, "algo", "", "algorithm: kmeans, dbscan or hierarchical (default from config)")
	f.IntVar(&a.k, "k", 0, "number of clusters for kmeans and hierarchical")
	f.Float64Var(&a.eps, "eps", 0, "DBSCAN neighborhood radius in standardized units")
	f.IntVar(&a.minSamples, "min-samples", 0, "DBSCAN minimum neighborhood size, the point included")
	f.Int64Var(&a.seed, "seed", 0, "k-means random seed")
}

// params merges changed flags over the config defaults.
func (a *algoFlags) params(cmd *cobra.Command, c *cfgpkg.Global) (string, cluster.Params) {
	name := c.Algorithm
	p := cluster.Params{K: c.K, Eps: c.Eps, MinSamples: c.MinSamples, Seed: c.Seed, NInit: c.NInit, MaxIter: c.MaxIter}
	f := cmd.Flags()
	if f.Changed("algo") {
		name = a.algo
	}
	if f.Changed("k") {
		p.K = a.k
	}
	if f.Changed("eps") {
		p.Eps = a.eps
	}
	if f.Changed("min-samples") {
		p.MinSamples = a.minSamples
	}
	if f.Changed("seed") {
		p.Seed = a.seed
	}
	return name, p
}

func (a *algoFlags) algorithm(cmd *cobra.Command, c *cfgpkg.Global) (cluster.Algorithm, cluster.Params, error) {
	name, p := a.params(cmd, c)
	alg, err := cluster.NewAlgorithm(name, p)
	return alg, p, err
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(c *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if c != nil {
		if c.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
		}
		if c.RetryMaxAttempts > 0 {
			retryMax = c.RetryMaxAttempts
		}
		if c.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
		}
		if c.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && c != nil {
		providerName = strings.ToLower(c.InsightsProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      os.Getenv("OPENROUTER_API_KEY"),
	}
	if rc.APIKey == "" && c != nil {
		rc.APIKey = c.APIKey
	}
	rc.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if rc.AnthropicAPIKey == "" && c != nil {
		rc.AnthropicAPIKey = c.AnthropicAPIKey
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("CLUSTERLOOM_OLLAMA_HOST")
		}
		if host == "" && c != nil {
			host = c.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
	}

	rt, err := ai.MustRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return rt, providerName, nil
}

func selectModel(c *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if c != nil && c.InsightsModel != "" {
		return c.InsightsModel
	}
	switch provider {
	case ai.ProviderAnthropic:
		return ai.DefaultAnthropicModel
	case ai.ProviderOllama:
		return "llama3.1:8b"
	}
	return "openai/gpt-4o-mini"
}

// recordRun stores res in the history database. Failures are warnings.
func recordRun(cmd *cobra.Command, c *cfgpkg.Global, res *cluster.Result) {
	if !c.HistoryEnabled || c.HistoryDB == "" {
		return
	}
	store, err := history.Open(utils.ExpandHome(c.HistoryDB))
	if err != nil {
		warnf(cmd, "history unavailable: %v", err)
		return
	}
	defer store.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	run, err := store.Record(ctx, history.FromResult(res))
	if err != nil {
		warnf(cmd, "history not recorded: %v", err)
		return
	}
	okf(cmd, "Recorded run %s", run.ID)
}

// writeOrPrint writes data to path, or to stdout when path is empty.
func writeOrPrint(cmd *cobra.Command, path string, data []byte, what string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	okf(cmd, "Wrote %s to %s", what, path)
	return nil
}

// outputPath places name in dir, or next to src when dir is empty.
func outputPath(dir, src, suffix string) string {
	p := utils.SiblingPath(src, suffix)
	if dir == "" {
		return p
	}
	return filepath.Join(utils.ExpandHome(dir), filepath.Base(p))
}
