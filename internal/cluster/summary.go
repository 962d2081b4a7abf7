package cluster

import (
	"math"
	"sort"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// Summary holds per-cluster statistics of the numeric columns in their
// original units. Rows are sorted by label; noise is excluded.
type Summary struct {
	Columns []string     `json:"columns"`
	Rows    []SummaryRow `json:"rows"`
}

// SummaryRow is one cluster. Std is the sample standard deviation, 0 for a
// single-member cluster.
type SummaryRow struct {
	Label int       `json:"label"`
	Size  int       `json:"size"`
	Mean  []float64 `json:"mean"`
	Std   []float64 `json:"std"`
}

// Row returns the summary row for label.
func (s *Summary) Row(label int) (SummaryRow, bool) {
	for _, r := range s.Rows {
		if r.Label == label {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// Summarize aggregates every numeric column of ds by cluster label.
func Summarize(ds *dataset.Dataset, a *Assignment) (*Summary, error) {
	if len(a.Labels) != ds.Len() {
		return nil, &InvalidParameterError{Param: "assignment", Value: len(a.Labels), Reason: "label count differs from row count " + itoa(ds.Len())}
	}
	members := map[int][]int{}
	for i, l := range a.Labels {
		if l < Noise {
			return nil, &InvalidParameterError{Param: "label", Value: l, Reason: "labels must be -1 or non-negative"}
		}
		if l == Noise {
			continue
		}
		members[l] = append(members[l], i)
	}
	labels := make([]int, 0, len(members))
	for l := range members {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	cols := ds.Numeric()
	out := &Summary{Columns: make([]string, len(cols))}
	for j, c := range cols {
		out.Columns[j] = c.Name
	}
	vals := make([]float64, 0, ds.Len())
	for _, l := range labels {
		idx := members[l]
		row := SummaryRow{Label: l, Size: len(idx), Mean: make([]float64, len(cols)), Std: make([]float64, len(cols))}
		for j, c := range cols {
			vals = vals[:0]
			for _, i := range idx {
				if v := c.Values[i]; !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
			if len(vals) == 0 {
				return nil, &EmptyClusterError{Label: l, Column: c.Name}
			}
			if len(vals) == 1 {
				row.Mean[j] = vals[0]
				continue
			}
			row.Mean[j], row.Std[j] = stat.MeanStdDev(vals, nil)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
