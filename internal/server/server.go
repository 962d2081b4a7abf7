// Package server serves clustering dashboards for the files of an uploads
// folder.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

// Config configures a Server.
type Config struct {
	Address    string
	UploadsDir string
	Pattern    string
	// CacheSize bounds the number of cached results. 0 means 64.
	CacheSize int
	// Algorithm and Params apply when a request omits them.
	Algorithm string
	Params    cluster.Params
	Load      dataset.Options
	ElbowMaxK int
	Logger    *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg     Config
	matcher *dataset.Matcher
	cache   *lru.Cache[string, *entry]
	server  *http.Server
	log     *slog.Logger
}

type entry struct {
	res   *cluster.Result
	elbow []cluster.ElbowPoint
}

// New validates cfg and builds the server.
func New(cfg Config) (*Server, error) {
	if cfg.UploadsDir == "" {
		return nil, errors.New("uploads folder is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = cluster.NameKMeans
	}
	if cfg.ElbowMaxK <= 0 {
		cfg.ElbowMaxK = cluster.DefaultElbowMaxK
	}
	m, err := dataset.NewMatcher(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, *entry](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, matcher: m, cache: cache, log: log}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/cluster", s.handleClusterAPI)
	mux.HandleFunc("/api/uploads", s.handleUploadsAPI)
	mux.HandleFunc("/elbow.png", s.handleElbowPNG)
	mux.HandleFunc("/dendrogram.png", s.handleDendrogramPNG)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting dashboard server", "addr", s.cfg.Address, "uploads", s.cfg.UploadsDir)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve %s: %w", s.cfg.Address, err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("shutting down dashboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("dashboard shutdown error", "err", err)
		if err := s.server.Close(); err != nil {
			s.log.Warn("dashboard force close error", "err", err)
		}
	}
	return nil
}
