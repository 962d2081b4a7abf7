package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/clusterloom-cli/internal/config"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
	"github.com/KaramelBytes/clusterloom-cli/internal/watch"
)

var (
	watchLoad     loadFlags
	watchAlgo     algoFlags
	watchDir      string
	watchDebounce int
	watchNoHTML   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-cluster files as they land in the uploads folder",
	Long: `Watch clusters every new or rewritten file in uploads_dir that matches
upload_pattern. For each file it writes <name>.clusters.md and
<name>.dashboard.html next to it, or into output_dir when set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		dir := c.UploadsDir
		if watchDir != "" {
			dir = watchDir
		}
		dir = utils.ExpandHome(dir)
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		opt, err := watchLoad.options(c)
		if err != nil {
			return err
		}
		name, params := watchAlgo.params(cmd, c)
		// Reject bad parameters before waiting for files.
		if _, err := cluster.NewAlgorithm(name, params); err != nil {
			return err
		}
		w, err := watch.New(watch.Config{
			Dir:      dir,
			Pattern:  c.UploadPattern,
			Debounce: time.Duration(watchDebounce) * time.Millisecond,
			Logger:   slog.Default(),
		})
		if err != nil {
			return err
		}
		job := uploadJob{cmd: cmd, cfg: c, load: opt, algorithm: name, params: params, html: !watchNoHTML}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		okf(cmd, "Watching %s for %s (Ctrl+C to stop)", dir, c.UploadPattern)
		return w.Run(ctx, job.process)
	},
}

// uploadJob clusters one settled upload and writes its reports.
type uploadJob struct {
	cmd       *cobra.Command
	cfg       *cfgpkg.Global
	load      dataset.Options
	algorithm string
	params    cluster.Params
	html      bool
}

func (j uploadJob) process(ctx context.Context, path string) error {
	ds, err := dataset.Load(path, j.load)
	if err != nil {
		return err
	}
	alg, err := cluster.NewAlgorithm(j.algorithm, j.params)
	if err != nil {
		return err
	}
	res, err := cluster.Run(ds, alg)
	if err != nil {
		warnf(j.cmd, "%s: %v", path, err)
		return nil
	}
	var elbow []cluster.ElbowPoint
	if alg.Name() == cluster.NameKMeans {
		elbow, err = cluster.Elbow(res.Scaled, j.cfg.ElbowMaxK, j.params.Seed)
		if err != nil {
			slog.Debug("elbow skipped", "path", path, "err", err)
			elbow = nil
		}
	}

	mdPath := outputPath(j.cfg.OutputDir, path, ".clusters.md")
	if err := utils.SafeWriteFile(mdPath, []byte(report.Markdown(res, elbow))); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	okf(j.cmd, "%s: %d clusters, report %s", ds.Name, res.Clusters, mdPath)
	if j.html {
		var buf bytes.Buffer
		if err := report.Dashboard(&buf, res, elbow, report.DashboardOptions{}); err != nil {
			return fmt.Errorf("render dashboard: %w", err)
		}
		htmlPath := outputPath(j.cfg.OutputDir, path, ".dashboard.html")
		if err := utils.SafeWriteFile(htmlPath, buf.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", htmlPath, err)
		}
	}
	recordRun(j.cmd, j.cfg, res)
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchLoad.bind(watchCmd)
	watchAlgo.bind(watchCmd)
	f := watchCmd.Flags()
	f.StringVar(&watchDir, "dir", "", "folder to watch (default from uploads_dir)")
	f.IntVar(&watchDebounce, "debounce-ms", int(watch.DefaultDebounce/time.Millisecond), "quiet period before a file is processed")
	f.BoolVar(&watchNoHTML, "no-html", false, "skip the HTML dashboard")
}
