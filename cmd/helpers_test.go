package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/clusterloom-cli/internal/config"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

const customersCSV = `CustomerID,Age,Annual Income (k$),Spending Score
1,19,15,39
2,21,15,81
3,20,16,6
4,23,16,77
5,31,17,40
6,22,17,76
7,35,18,6
8,23,18,94
9,64,19,3
10,30,19,72
11,67,19,14
12,35,19,99
`

func writeCustomers(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "customers.csv")
	if err := os.WriteFile(p, []byte(customersCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{InsightsModel: "cfg-model"}

	if got := selectModel(cfg, ai.ProviderOpenRouter, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(cfg, ai.ProviderOpenRouter, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	cfg.InsightsModel = ""
	if got := selectModel(cfg, ai.ProviderOpenRouter, ""); got != "openai/gpt-4o-mini" {
		t.Fatalf("expected fallback model, got %q", got)
	}
	if got := selectModel(cfg, ai.ProviderAnthropic, ""); got != ai.DefaultAnthropicModel {
		t.Fatalf("expected anthropic default, got %q", got)
	}
	if got := selectModel(nil, ai.ProviderOllama, ""); got != "llama3.1:8b" {
		t.Fatalf("expected ollama default, got %q", got)
	}
}

func TestBuildRuntimeDefaults(t *testing.T) {
	cfg := &cfgpkg.Global{InsightsProvider: "local", OllamaHost: "http://example"}
	client, provider, err := buildRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderOllama {
		t.Fatalf("expected ollama provider, got %q", provider)
	}
	if client == nil {
		t.Fatal("expected runtime client")
	}
}

func TestBuildRuntimeFlagWins(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := &cfgpkg.Global{InsightsProvider: "ollama"}
	_, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: "Anthropic"})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderAnthropic {
		t.Fatalf("expected anthropic provider, got %q", provider)
	}
	if _, _, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: "bogus"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadFlagsOptions(t *testing.T) {
	cfg := &cfgpkg.Global{Missing: "mean"}
	l := loadFlags{delimiter: "tab", decimal: "comma", thousands: "space"}
	opt, err := l.options(cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opt.Delimiter != '\t' || opt.DecimalSeparator != ',' || opt.ThousandsSeparator != ' ' {
		t.Fatalf("unexpected separators: %+v", opt)
	}
	if opt.Missing != dataset.MissingMean {
		t.Fatalf("expected config missing policy, got %q", opt.Missing)
	}

	l = loadFlags{missing: "keep"}
	if opt, _ = l.options(cfg); opt.Missing != dataset.MissingKeep {
		t.Fatalf("expected flag missing policy, got %q", opt.Missing)
	}
	for _, bad := range []loadFlags{{delimiter: "#"}, {decimal: "x"}, {thousands: "_"}, {missing: "zero"}} {
		if _, err := bad.options(cfg); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestAlgoFlagsOverrideConfig(t *testing.T) {
	cfg := &cfgpkg.Global{Algorithm: "kmeans", K: 3, Eps: 0.5, MinSamples: 5, NInit: 10, MaxIter: 300}
	cmd := &cobra.Command{}
	var a algoFlags
	a.bind(cmd)

	name, p := a.params(cmd, cfg)
	if name != "kmeans" || p.K != 3 || p.NInit != 10 {
		t.Fatalf("expected config defaults, got %s %+v", name, p)
	}

	_ = cmd.Flags().Set("algo", "dbscan")
	_ = cmd.Flags().Set("eps", "0.3")
	name, p = a.params(cmd, cfg)
	if name != "dbscan" || p.Eps != 0.3 || p.MinSamples != 5 {
		t.Fatalf("expected flag overrides, got %s %+v", name, p)
	}
	if _, _, err := a.algorithm(cmd, cfg); err != nil {
		t.Fatalf("algorithm: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("", filepath.Join("up", "a.csv"), ".clusters.md"); got != filepath.Join("up", "a.clusters.md") {
		t.Fatalf("unexpected sibling path %q", got)
	}
	if got := outputPath("out", filepath.Join("up", "a.csv"), ".clusters.md"); got != filepath.Join("out", "a.clusters.md") {
		t.Fatalf("unexpected output dir path %q", got)
	}
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	for key, val := range map[string]string{
		"algorithm":         "ward",
		"k":                 "4",
		"eps":               "0.7",
		"missing":           "mean",
		"insights_provider": "local",
		"history_enabled":   "false",
	} {
		if err := setConfigValue(c, key, val); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if c.Algorithm != "hierarchical" || c.K != 4 || c.Eps != 0.7 || c.Missing != "mean" || c.InsightsProvider != ai.ProviderOllama {
		t.Fatalf("unexpected config: %+v", c)
	}
	for key, val := range map[string]string{"k": "1", "eps": "0", "algorithm": "spectral", "nope": "x"} {
		if err := setConfigValue(c, key, val); err == nil {
			t.Fatalf("expected error for %s=%s", key, val)
		}
	}
}

func TestUploadJobWritesReports(t *testing.T) {
	dir := t.TempDir()
	path := writeCustomers(t, dir)
	cmd := &cobra.Command{}
	errBuf := &bytes.Buffer{}
	cmd.SetErr(errBuf)
	job := uploadJob{
		cmd:       cmd,
		cfg:       &cfgpkg.Global{ElbowMaxK: 4},
		load:      dataset.Options{Missing: dataset.MissingDrop, Exclude: []string{"CustomerID"}},
		algorithm: "kmeans",
		params:    cluster.Params{K: 3, NInit: 10, MaxIter: 300},
		html:      true,
	}
	if err := job.process(context.Background(), path); err != nil {
		t.Fatalf("process: %v", err)
	}
	md, err := os.ReadFile(filepath.Join(dir, "customers.clusters.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(md), "[CLUSTERING SUMMARY]") || !strings.Contains(string(md), "[ELBOW]") {
		t.Fatalf("unexpected report: %s", md)
	}
	if _, err := os.Stat(filepath.Join(dir, "customers.dashboard.html")); err != nil {
		t.Fatalf("dashboard missing: %v", err)
	}
	if !strings.Contains(errBuf.String(), "✓ customers.csv: 3 clusters") {
		t.Fatalf("unexpected status output: %q", errBuf.String())
	}
}
