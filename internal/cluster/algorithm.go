// Package cluster implements the cluster-assignment pipeline: numeric
// feature selection, standardization, k-means, DBSCAN and ward clustering,
// per-cluster summaries and silhouette quality.
//
// Every function is pure. Inputs are never modified, and each call returns
// fresh results.
package cluster

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Noise is the label DBSCAN gives to rows outside every cluster.
const Noise = -1

// Algorithm names as accepted by NewAlgorithm and reported by Name.
const (
	NameKMeans       = "kmeans"
	NameDBSCAN       = "dbscan"
	NameHierarchical = "hierarchical"
)

// Algorithm is one of KMeans, DBSCAN or Hierarchical.
type Algorithm interface {
	Name() string
	// Params returns the parameters as a flat map for reporting.
	Params() map[string]any
	assign(x *mat.Dense) (*Assignment, error)
}

// Params carries caller-side configuration for NewAlgorithm. Only the
// fields the chosen algorithm uses are read.
type Params struct {
	K          int
	Eps        float64
	MinSamples int
	Seed       int64
	NInit      int
	MaxIter    int
}

// NewAlgorithm builds an algorithm variant by name.
func NewAlgorithm(name string, p Params) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameKMeans, "k-means", "centroid":
		return KMeans{K: p.K, Seed: p.Seed, NInit: p.NInit, MaxIter: p.MaxIter}, nil
	case NameDBSCAN, "density":
		return DBSCAN{Eps: p.Eps, MinSamples: p.MinSamples}, nil
	case NameHierarchical, "ward", "agglomerative":
		return Hierarchical{K: p.K}, nil
	}
	return nil, &InvalidParameterError{Param: "algorithm", Value: name, Reason: "want kmeans, dbscan or hierarchical"}
}

// Merge is one agglomeration step. Ids below n are rows; id n+i is the
// group created by merge i.
type Merge struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
	Size     int     `json:"size"`
}

// Assignment holds one label per row plus algorithm byproducts.
type Assignment struct {
	Algorithm string
	Labels    []int
	// Inertia and Centroids are set by KMeans.
	Inertia   float64
	Centroids *mat.Dense
	// Merges is set by Hierarchical, sorted by ascending distance.
	Merges []Merge
}

// Assign runs alg over the scaled matrix.
func Assign(x *ScaledFeatureMatrix, alg Algorithm) (*Assignment, error) {
	if alg == nil {
		return nil, &InvalidParameterError{Param: "algorithm", Value: nil, Reason: "no algorithm selected"}
	}
	if x.Rows() == 0 {
		return nil, &InvalidParameterError{Algorithm: alg.Name(), Param: "rows", Value: 0, Reason: "at least one row is required"}
	}
	a, err := alg.assign(x.Data)
	if err != nil {
		return nil, err
	}
	a.Algorithm = alg.Name()
	return a, nil
}

// Clusters returns the distinct non-noise labels in ascending order.
func (a *Assignment) Clusters() []int {
	seen := map[int]bool{}
	var out []int
	for _, l := range a.Labels {
		if l != Noise && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// NoiseCount returns the number of rows labeled Noise.
func (a *Assignment) NoiseCount() int {
	n := 0
	for _, l := range a.Labels {
		if l == Noise {
			n++
		}
	}
	return n
}

// ClusterSize is the row count of one label.
type ClusterSize struct {
	Label int `json:"label"`
	Size  int `json:"size"`
}

// Sizes returns row counts per label, ascending, noise first when present.
func (a *Assignment) Sizes() []ClusterSize {
	counts := map[int]int{}
	for _, l := range a.Labels {
		counts[l]++
	}
	out := make([]ClusterSize, 0, len(counts))
	for l, c := range counts {
		out = append(out, ClusterSize{Label: l, Size: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// relabel renumbers labels by first appearance in row order, leaving Noise
// alone. It returns the mapping old -> new.
func relabel(labels []int) map[int]int {
	m := map[int]int{}
	for i, l := range labels {
		if l == Noise {
			continue
		}
		nl, ok := m[l]
		if !ok {
			nl = len(m)
			m[l] = nl
		}
		labels[i] = nl
	}
	return m
}

func invalid(alg, param string, v any, format string, args ...any) error {
	return &InvalidParameterError{Algorithm: alg, Param: param, Value: v, Reason: fmt.Sprintf(format, args...)}
}
