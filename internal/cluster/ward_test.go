package cluster

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWardLinkageKnownTree(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{0, 1, 3})
	got := WardLinkage(x)
	want := []Merge{
		{Left: 0, Right: 1, Distance: 1, Size: 2},
		{Left: 2, Right: 3, Distance: math.Sqrt(25.0 / 3.0), Size: 3},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("merges mismatch (-want +got):\n%s", diff)
	}
}

func TestWardLinkageInvariants(t *testing.T) {
	sc := scaledOf(t, randomDataset(t, 45, 3, 3))
	merges := WardLinkage(sc.Data)
	n := sc.Rows()
	require.Len(t, merges, n-1)

	used := map[int]bool{}
	for i, m := range merges {
		assert.Less(t, m.Left, m.Right)
		assert.Less(t, m.Right, n+i, "merge %d references a later group", i)
		assert.False(t, used[m.Left] || used[m.Right], "group merged twice at step %d", i)
		used[m.Left], used[m.Right] = true, true
		if i > 0 {
			assert.GreaterOrEqual(t, m.Distance, merges[i-1].Distance)
		}
	}
	assert.Equal(t, n, merges[n-2].Size)
}

func TestHierarchicalSeparatesTriplets(t *testing.T) {
	sc := scaledOf(t, triplets(t))
	a, err := Assign(sc, Hierarchical{K: 3})
	require.NoError(t, err)
	if diff := cmp.Diff(tripletLabels, a.Labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, a.Merges, 8)
}

func TestHierarchicalExactlyKGroups(t *testing.T) {
	sc := scaledOf(t, randomDataset(t, 30, 2, 21))
	for k := 2; k <= 8; k++ {
		a, err := Assign(sc, Hierarchical{K: k})
		require.NoError(t, err)
		assert.Len(t, a.Clusters(), k, "k=%d", k)
		assert.Equal(t, 0, a.Labels[0])
	}
}

func TestHierarchicalInvalidK(t *testing.T) {
	sc := scaledOf(t, triplets(t))
	for _, k := range []int{0, 1, 10} {
		_, err := Assign(sc, Hierarchical{K: k})
		var target *InvalidParameterError
		require.ErrorAs(t, err, &target, "k=%d", k)
		assert.Equal(t, NameHierarchical, target.Algorithm)
	}
}

func TestDendrogramTruncation(t *testing.T) {
	sc := scaledOf(t, randomDataset(t, 20, 2, 4))
	merges := WardLinkage(sc.Data)

	root := Dendrogram(merges, 20, 5)
	require.NotNil(t, root)
	assert.Equal(t, 20, root.Size)
	var leaves, rows int
	var walk func(*DendrogramNode)
	walk = func(d *DendrogramNode) {
		if d.Leaf() {
			leaves++
			rows += d.Size
			return
		}
		for _, c := range d.Children {
			assert.LessOrEqual(t, c.Height, d.Height)
			walk(c)
		}
	}
	walk(root)
	assert.Equal(t, 5, leaves)
	assert.Equal(t, 20, rows)

	full := Dendrogram(merges, 20, 0)
	leaves, rows = 0, 0
	walk(full)
	assert.Equal(t, 20, leaves)
}
