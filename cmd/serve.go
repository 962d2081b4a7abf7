package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/clusterloom-cli/internal/server"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

var (
	serveLoad loadFlags
	serveAlgo algoFlags
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve interactive cluster dashboards for the uploads folder",
	Long: `Serve starts a local HTTP server over uploads_dir. Open / to list the files,
then /dashboard?file=<name>&algo=dbscan&eps=0.4 to cluster one of them.

The algorithm flags set the defaults used when a request omits them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		addr := c.ServeAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		dir := c.UploadsDir
		if serveDir != "" {
			dir = serveDir
		}
		dir = utils.ExpandHome(dir)
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		opt, err := serveLoad.options(c)
		if err != nil {
			return err
		}
		name, params := serveAlgo.params(cmd, c)
		srv, err := server.New(server.Config{
			Address:    addr,
			UploadsDir: dir,
			Pattern:    c.UploadPattern,
			CacheSize:  c.CacheSize,
			Algorithm:  name,
			Params:     params,
			Load:       opt,
			ElbowMaxK:  c.ElbowMaxK,
			Logger:     slog.Default(),
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		okf(cmd, "Serving %s on http://%s", dir, addr)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveLoad.bind(serveCmd)
	serveAlgo.bind(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from serve_addr)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "uploads folder to serve (default from uploads_dir)")
}
