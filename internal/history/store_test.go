package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	sil := 0.71
	in := Run{
		Dataset:    "customers.csv",
		Algorithm:  "kmeans",
		Params:     map[string]any{"k": 3, "seed": 0},
		Features:   []string{"Age", "Income"},
		Rows:       200,
		Clusters:   3,
		Silhouette: &sil,
		Sizes:      []cluster.ClusterSize{{Label: 0, Size: 90}, {Label: 1, Size: 60}, {Label: 2, Size: 50}},
	}
	rec, err := s.Record(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "customers.csv", got.Dataset)
	assert.Equal(t, []string{"Age", "Income"}, got.Features)
	assert.Equal(t, in.Sizes, got.Sizes)
	assert.EqualValues(t, 3, got.Params["k"])
	require.NotNil(t, got.Silhouette)
	assert.InDelta(t, 0.71, *got.Silhouette, 1e-12)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestGetUnknown(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := s.Record(ctx, Run{Dataset: name, Algorithm: "dbscan", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.csv", runs[0].Dataset)
	assert.Equal(t, "b.csv", runs[1].Dataset)
	assert.Nil(t, runs[0].Silhouette)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec, err := s.Record(context.Background(), Run{Dataset: "x.csv", Algorithm: "hierarchical"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "hierarchical", got.Algorithm)
}
