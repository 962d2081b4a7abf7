package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>ClusterLoom uploads</title></head>
<body>
<h1>Uploads</h1>
<p>{{.Dir}} ({{.Pattern}})</p>
{{if .Uploads}}<table>
<tr><th>File</th><th>Size</th><th>Modified</th><th></th></tr>
{{range .Uploads}}<tr>
<td>{{.Name}}</td><td>{{.Size}}</td><td>{{.Modified}}</td>
<td><a href="/dashboard?file={{.Query}}">k-means</a> ·
<a href="/dashboard?file={{.Query}}&amp;algo=dbscan">DBSCAN</a> ·
<a href="/dashboard?file={{.Query}}&amp;algo=hierarchical">hierarchical</a></td>
</tr>{{end}}
</table>{{else}}<p>No files yet.</p>{{end}}
</body></html>
`))

type indexRow struct {
	Name     string
	Query    string
	Size     int64
	Modified string
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write json", "err", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// fail reports err as JSON for API routes and plain text otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.log.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.writeJSONError(w, status, err.Error())
		return
	}
	http.Error(w, err.Error(), status)
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cached": s.cache.Len()})
}

func (s *Server) uploads() ([]dataset.Upload, error) {
	return dataset.ListUploads(s.cfg.UploadsDir, s.matcher)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !getOnly(w, r) {
		return
	}
	ups, err := s.uploads()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([]indexRow, len(ups))
	for i, u := range ups {
		rows[i] = indexRow{
			Name:     u.Name,
			Query:    url.QueryEscape(u.Name),
			Size:     u.Size,
			Modified: time.Unix(0, u.ModUnix).Format(time.RFC3339),
		}
	}
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, map[string]any{"Dir": s.cfg.UploadsDir, "Pattern": s.matcher.Pattern(), "Uploads": rows}); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleUploadsAPI(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	ups, err := s.uploads()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ups == nil {
		ups = []dataset.Upload{}
	}
	s.writeJSON(w, http.StatusOK, ups)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	e, err := s.result(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Dashboard(&buf, e.res, e.elbow, report.DashboardOptions{}); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleClusterAPI(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	e, err := s.result(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report.NewPayload(e.res, e.elbow))
}

func (s *Server) handleElbowPNG(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	e, err := s.result(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(e.elbow) == 0 {
		s.fail(w, r, unprocessable("elbow curve unavailable for this file"))
		return
	}
	p, err := report.ElbowPlot(e.elbow)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePNG(w, r, func(buf *bytes.Buffer) error { return report.WritePNG(buf, p) })
}

func (s *Server) handleDendrogramPNG(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	q := r.URL.Query()
	if q.Get("algo") == "" {
		q.Set("algo", cluster.NameHierarchical)
		r.URL.RawQuery = q.Encode()
	}
	e, err := s.result(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	merges := e.res.Assignment.Merges
	if len(merges) == 0 {
		s.fail(w, r, unprocessable("dendrogram needs algo=hierarchical"))
		return
	}
	root := cluster.Dendrogram(merges, len(e.res.Assignment.Labels), 30)
	p, err := report.DendrogramPlot(root, report.CutHeight(merges, e.res.Clusters))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writePNG(w, r, func(buf *bytes.Buffer) error { return report.WritePNG(buf, p) })
}

func (s *Server) writePNG(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
