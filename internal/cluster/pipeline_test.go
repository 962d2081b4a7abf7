package cluster

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEndToEnd(t *testing.T) {
	ds := triplets(t)
	for _, alg := range []Algorithm{
		KMeans{K: 3},
		DBSCAN{Eps: 0.5, MinSamples: 2},
		Hierarchical{K: 3},
	} {
		t.Run(alg.Name(), func(t *testing.T) {
			res, err := Run(ds, alg)
			require.NoError(t, err)
			assert.Equal(t, tripletLabels, res.Assignment.Labels)
			assert.Equal(t, 3, res.Clusters)
			assert.Equal(t, 0, res.Noise)
			assert.True(t, res.SilhouetteOK)
			assert.Len(t, res.Summary.Rows, 3)
			for _, s := range res.Sizes {
				assert.Equal(t, 3, s.Size)
			}
			assert.Len(t, res.Projection.X, 9)
			assert.Len(t, res.Projection.Explained, 2)

			col, ok := res.Labeled.Column(LabelColumn)
			require.True(t, ok)
			assert.Equal(t, dataset.KindLabel, col.Kind)
			_, ok = ds.Column(LabelColumn)
			assert.False(t, ok, "input dataset must not gain a label column")
		})
	}
}

func TestRunPropagatesTypedErrors(t *testing.T) {
	flat, err := dataset.FromFloats("flat", []string{"a", "b"}, [][]float64{{1, 5}, {2, 5}, {3, 5}})
	require.NoError(t, err)
	_, err = Run(flat, KMeans{K: 2})
	var degenerate *DegenerateFeatureError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, "b", degenerate.Column)

	text, err := dataset.ReadCSV("t.csv", strings.NewReader("a\nx\ny\n"), dataset.DefaultOptions())
	require.NoError(t, err)
	_, err = Run(text, KMeans{K: 2})
	var none *NoNumericColumnsError
	require.ErrorAs(t, err, &none)

	_, err = Run(triplets(t), KMeans{K: 12})
	var invalidErr *InvalidParameterError
	require.ErrorAs(t, err, &invalidErr)
}

func TestRunAvoidsLabelColumnClash(t *testing.T) {
	ds, err := dataset.ReadCSV("c.csv", strings.NewReader("Cluster,x,y\na,0,0\nb,0,1\nc,5,5\nd,5,6\n"), dataset.DefaultOptions())
	require.NoError(t, err)
	res, err := Run(ds, KMeans{K: 2})
	require.NoError(t, err)
	_, ok := res.Labeled.Column("Cluster_2")
	assert.True(t, ok)
}
