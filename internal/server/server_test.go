package server

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

const customersCSV = "CustomerID,Age,Annual Income (k$),Spending Score\n" +
	"1,19,15,39\n2,21,15,81\n3,20,16,6\n4,23,16,77\n5,31,17,40\n" +
	"6,22,17,76\n7,35,18,6\n8,23,18,94\n9,64,19,3\n10,30,19,72\n" +
	"11,67,19,14\n12,35,19,99\n13,58,20,15\n14,24,20,77\n15,37,20,13\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers.csv"), []byte(customersCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	s, err := New(Config{
		UploadsDir: dir,
		Params:     cluster.Params{K: 3, Eps: 0.5, MinSamples: 3},
		Load:       dataset.Options{Missing: dataset.MissingDrop, Exclude: []string{"CustomerID"}},
		ElbowMaxK:  5,
		CacheSize:  4,
	})
	require.NoError(t, err)
	return s, dir
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexListsMatchingUploads(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "customers.csv")
	assert.NotContains(t, rec.Body.String(), "notes.txt")

	rec = get(t, s, "/api/uploads")
	require.Equal(t, http.StatusOK, rec.Code)
	var ups []dataset.Upload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ups))
	require.Len(t, ups, 1)
	assert.Equal(t, "customers.csv", ups[0].Name)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

func TestDashboardRendersHTML(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/dashboard?file=customers.csv&algo=kmeans&k=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Cluster projection")

	// Without a file the newest upload is used.
	rec = get(t, s, "/dashboard?algo=dbscan")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestClusterAPIPayload(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/cluster?file=customers.csv&algo=hierarchical&k=4")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "hierarchical", got["algorithm"])
	assert.EqualValues(t, 4, got["clusters"])
	assert.Len(t, got["labels"], 15)
	assert.Equal(t, []any{"Age", "Annual Income", "Spending Score"}, got["features"])
	assert.NotEmpty(t, got["elbow"])
}

func TestInvalidParametersAre422(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{
		"algo=kmeans&k=1",
		"algo=kmeans&k=abc",
		"algo=dbscan&eps=0",
		"algo=dbscan&eps=x",
		"algo=spectral",
		"algo=hierarchical&k=99",
	} {
		rec := get(t, s, "/api/cluster?file=customers.csv&"+q)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), q)
		assert.NotEmpty(t, body["error"], q)
	}
}

func TestPathTraversalIs400(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.csv"), []byte("a,b\n1,2\n"), 0o644))
	for _, f := range []string{"../secret.csv", "..%2Fsecret.csv", "sub/x.csv", "notes.txt", ".hidden.csv"} {
		rec := get(t, s, "/dashboard?file="+f)
		assert.Equal(t, http.StatusBadRequest, rec.Code, f)
	}
	assert.Equal(t, http.StatusNotFound, get(t, s, "/dashboard?file=missing.csv").Code)
}

func TestNoNumericColumnsIs422(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "names.csv"), []byte("name,city\nann,rome\nbob,oslo\n"), 0o644))
	rec := get(t, s, "/api/cluster?file=names.csv")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResultsAreCached(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, get(t, s, "/api/cluster?file=customers.csv&k=3").Code)
	require.Equal(t, http.StatusOK, get(t, s, "/api/cluster?file=customers.csv&k=3").Code)
	assert.Equal(t, 1, s.cache.Len())
	require.Equal(t, http.StatusOK, get(t, s, "/api/cluster?file=customers.csv&k=4").Code)
	assert.Equal(t, 2, s.cache.Len())
}

func TestCacheInvalidatedByModification(t *testing.T) {
	s, dir := newTestServer(t)
	require.Equal(t, http.StatusOK, get(t, s, "/api/cluster?file=customers.csv").Code)
	p := filepath.Join(dir, "customers.csv")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(p, later, later))
	require.Equal(t, http.StatusOK, get(t, s, "/api/cluster?file=customers.csv").Code)
	assert.Equal(t, 2, s.cache.Len())
}

func TestPNGRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/elbow.png?file=customers.csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)

	rec = get(t, s, "/dendrogram.png?file=customers.csv&k=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = get(t, s, "/dendrogram.png?file=customers.csv&algo=kmeans")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cluster", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	s, err := New(Config{Address: "127.0.0.1:0", UploadsDir: t.TempDir()})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewRequiresUploadsDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
