package cluster

import (
	"math/rand"
	"testing"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/stretchr/testify/require"
)

// triplets returns nine rows in three tight, well separated groups.
func triplets(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromFloats("triplets", []string{"x", "y"}, [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 0}, {10.1, 0}, {10, 0.1},
		{0, 10}, {0.1, 10}, {0, 10.1},
	})
	require.NoError(t, err)
	return ds
}

func scaledOf(t *testing.T, ds *dataset.Dataset) *ScaledFeatureMatrix {
	t.Helper()
	fm, err := SelectNumericFeatures(ds)
	require.NoError(t, err)
	sc, err := Standardize(fm)
	require.NoError(t, err)
	return sc
}

func randomDataset(t *testing.T, n, d int, seed int64) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	names := make([]string, d)
	for j := range names {
		names[j] = string(rune('a' + j))
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, d)
		for j := range rows[i] {
			rows[i][j] = rng.NormFloat64()*2 + float64((i%3)*5)
		}
	}
	ds, err := dataset.FromFloats("random", names, rows)
	require.NoError(t, err)
	return ds
}

var tripletLabels = []int{0, 0, 0, 1, 1, 1, 2, 2, 2}
