package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultUploadPattern matches every format Load understands.
const DefaultUploadPattern = "*.{csv,tsv,xlsx}"

// ErrNoUploads is returned when an uploads folder has no matching file.
var ErrNoUploads = errors.New("no matching files in uploads folder")

// Matcher filters file names against a glob; matching is case-insensitive
// and applies to the base name only.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// NewMatcher compiles pattern, defaulting to DefaultUploadPattern.
func NewMatcher(pattern string) (*Matcher, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultUploadPattern
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, g: g}, nil
}

// Pattern returns the source glob.
func (m *Matcher) Pattern() string { return m.pattern }

// Match reports whether the base name of p matches.
func (m *Matcher) Match(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	return m.g.Match(strings.ToLower(base))
}

// Upload is one candidate file found in an uploads folder.
type Upload struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModUnix int64  `json:"mod_unix"`
}

// ListUploads returns matching regular files, newest first, ties by name.
func ListUploads(dir string, m *Matcher) ([]Upload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read uploads folder: %w", err)
	}
	var out []Upload
	for _, e := range entries {
		if e.IsDir() || !m.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, Upload{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModUnix: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModUnix != out[j].ModUnix {
			return out[i].ModUnix > out[j].ModUnix
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// LatestUpload returns the most recently modified matching file in dir.
func LatestUpload(dir, pattern string) (string, error) {
	m, err := NewMatcher(pattern)
	if err != nil {
		return "", err
	}
	ups, err := ListUploads(dir, m)
	if err != nil {
		return "", err
	}
	if len(ups) == 0 {
		return "", fmt.Errorf("%w: %s (%s)", ErrNoUploads, dir, m.Pattern())
	}
	return ups[0].Path, nil
}
