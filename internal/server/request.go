package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
)

// requestError carries the HTTP status for a rejected request.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func unprocessable(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

// statusOf maps an error to an HTTP status.
func statusOf(err error) int {
	var re *requestError
	if errors.As(err, &re) {
		return re.status
	}
	var (
		nn *cluster.NoNumericColumnsError
		dg *cluster.DegenerateFeatureError
		mv *cluster.MissingValueError
		ip *cluster.InvalidParameterError
		ec *cluster.EmptyClusterError
	)
	switch {
	case errors.As(err, &nn), errors.As(err, &dg), errors.As(err, &mv), errors.As(err, &ip), errors.As(err, &ec),
		errors.Is(err, dataset.ErrEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, os.ErrNotExist), errors.Is(err, dataset.ErrNoUploads):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// resolveFile validates the file query value against the uploads folder. An
// empty value selects the newest upload.
func (s *Server) resolveFile(name string) (string, os.FileInfo, error) {
	if name == "" {
		p, err := dataset.LatestUpload(s.cfg.UploadsDir, s.matcher.Pattern())
		if err != nil {
			return "", nil, err
		}
		info, err := os.Stat(p)
		return p, info, err
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == ".." || name == "." {
		return "", nil, badRequest("invalid file name %q", name)
	}
	if !s.matcher.Match(name) {
		return "", nil, badRequest("file %q does not match %s", name, s.matcher.Pattern())
	}
	p := filepath.Join(s.cfg.UploadsDir, name)
	info, err := os.Stat(p)
	if err != nil {
		return "", nil, fmt.Errorf("file %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, badRequest("file %q is not a regular file", name)
	}
	return p, info, nil
}

// parseAlgorithm reads algo, k, eps, min_samples and seed, falling back to
// the server defaults.
func (s *Server) parseAlgorithm(q url.Values) (cluster.Algorithm, cluster.Params, error) {
	name := q.Get("algo")
	if name == "" {
		name = s.cfg.Algorithm
	}
	p := s.cfg.Params
	var err error
	if p.K, err = intParam(q, "k", p.K); err != nil {
		return nil, p, err
	}
	if p.MinSamples, err = intParam(q, "min_samples", p.MinSamples); err != nil {
		return nil, p, err
	}
	if v := q.Get("eps"); v != "" {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return nil, p, unprocessable("eps: %q is not a number", v)
		}
		p.Eps = f
	}
	if v := q.Get("seed"); v != "" {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return nil, p, unprocessable("seed: %q is not an integer", v)
		}
		p.Seed = n
	}
	alg, err := cluster.NewAlgorithm(name, p)
	return alg, p, err
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, unprocessable("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// result loads and clusters the requested file, using the cache.
func (s *Server) result(r *http.Request) (*entry, error) {
	q := r.URL.Query()
	path, info, err := s.resolveFile(q.Get("file"))
	if err != nil {
		return nil, err
	}
	alg, params, err := s.parseAlgorithm(q)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d|%s|%s", filepath.Base(path), info.ModTime().UnixNano(), info.Size(), alg.Name(), report.FormatParams(alg.Params()))
	if e, ok := s.cache.Get(key); ok {
		s.log.Debug("cache hit", "key", key)
		return e, nil
	}
	ds, err := dataset.Load(path, s.cfg.Load)
	if err != nil {
		return nil, err
	}
	res, err := cluster.Run(ds, alg)
	if err != nil {
		return nil, err
	}
	e := &entry{res: res}
	if e.elbow, err = cluster.Elbow(res.Scaled, s.cfg.ElbowMaxK, params.Seed); err != nil {
		s.log.Warn("elbow skipped", "file", path, "err", err)
		e.elbow = nil
	}
	s.cache.Add(key, e)
	s.log.Info("clustered", "file", filepath.Base(path), "algorithm", alg.Name(), "clusters", res.Clusters, "noise", res.Noise)
	return e, nil
}
