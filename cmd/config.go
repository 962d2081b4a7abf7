package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/clusterloom-cli/internal/config"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ClusterLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "algorithm: %s\n", cfg.Algorithm)
		fmt.Fprintf(out, "k: %d\n", cfg.K)
		fmt.Fprintf(out, "eps: %g\n", cfg.Eps)
		fmt.Fprintf(out, "min_samples: %d\n", cfg.MinSamples)
		fmt.Fprintf(out, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(out, "n_init: %d\n", cfg.NInit)
		fmt.Fprintf(out, "max_iter: %d\n", cfg.MaxIter)
		fmt.Fprintf(out, "elbow_max_k: %d\n", cfg.ElbowMaxK)
		fmt.Fprintf(out, "missing: %s\n", cfg.Missing)
		fmt.Fprintf(out, "uploads_dir: %s\n", cfg.UploadsDir)
		fmt.Fprintf(out, "upload_pattern: %s\n", cfg.UploadPattern)
		if cfg.OutputDir != "" {
			fmt.Fprintf(out, "output_dir: %s\n", cfg.OutputDir)
		}
		fmt.Fprintf(out, "history_db: %s\n", cfg.HistoryDB)
		fmt.Fprintf(out, "history_enabled: %t\n", cfg.HistoryEnabled)
		fmt.Fprintf(out, "serve_addr: %s\n", cfg.ServeAddr)
		if cfg.InsightsProvider != "" {
			fmt.Fprintf(out, "insights_provider: %s\n", cfg.InsightsProvider)
		}
		if cfg.InsightsModel != "" {
			fmt.Fprintf(out, "insights_model: %s\n", cfg.InsightsModel)
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "anthropic_api_key: %s\n", mask(cfg.AnthropicAPIKey))
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "algorithm":
		alg, err := cluster.NewAlgorithm(val, cluster.Params{})
		if err != nil {
			return err
		}
		c.Algorithm = alg.Name()
	case "k":
		i, err := strconv.Atoi(val)
		if err != nil || i < 2 {
			return fmt.Errorf("invalid int for k: %v (need >= 2)", val)
		}
		c.K = i
	case "eps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for eps: %v (need > 0)", val)
		}
		c.Eps = f
	case "min_samples":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for min_samples: %v (need >= 1)", val)
		}
		c.MinSamples = i
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "elbow_max_k":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for elbow_max_k: %v", val)
		}
		c.ElbowMaxK = i
	case "missing":
		p, err := dataset.ParseMissingPolicy(val)
		if err != nil {
			return err
		}
		c.Missing = string(p)
	case "uploads_dir":
		c.UploadsDir = val
	case "upload_pattern":
		if _, err := dataset.NewMatcher(val); err != nil {
			return err
		}
		c.UploadPattern = val
	case "output_dir":
		c.OutputDir = val
	case "history_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for history_enabled: %w", err)
		}
		c.HistoryEnabled = b
	case "serve_addr":
		c.ServeAddr = val
	case "insights_provider":
		switch p := strings.ToLower(val); p {
		case "", "none":
			c.InsightsProvider = ""
		case ai.ProviderOpenRouter, ai.ProviderAnthropic, ai.ProviderOllama:
			c.InsightsProvider = p
		case ai.ProviderLocal:
			c.InsightsProvider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid insights_provider: %s (use %s or none)", val, strings.Join(ai.Providers(), ", "))
		}
	case "insights_model":
		c.InsightsModel = val
	case "api_key":
		c.APIKey = val
	case "anthropic_api_key":
		c.AnthropicAPIKey = val
	case "max_tokens":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for max_tokens: %w", err)
		}
		c.MaxTokens = i
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for temperature: %w", err)
		}
		c.Temperature = f
	case "ollama_host":
		c.OllamaHost = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
