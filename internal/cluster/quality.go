package cluster

import (
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// QualityScore returns the mean silhouette coefficient over non-noise rows.
// ok is false when there are fewer than two clusters or any cluster has a
// single member; the score is undefined then.
func QualityScore(x *ScaledFeatureMatrix, a *Assignment) (score float64, ok bool) {
	n := x.Rows()
	if len(a.Labels) != n {
		return 0, false
	}
	counts := map[int]int{}
	for _, l := range a.Labels {
		if l != Noise {
			counts[l]++
		}
	}
	if len(counts) < 2 {
		return 0, false
	}
	for _, c := range counts {
		if c < 2 {
			return 0, false
		}
	}

	idx := make(map[int]int, len(counts))
	for l := range counts {
		idx[l] = len(idx)
	}
	rows := denseRows(x.Data)
	sums := make([]float64, len(counts))
	var total float64
	retained := 0
	for i := 0; i < n; i++ {
		li := a.Labels[i]
		if li == Noise {
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			lj := a.Labels[j]
			if j == i || lj == Noise {
				continue
			}
			sums[idx[lj]] += floats.Distance(rows[i], rows[j], 2)
		}
		own := sums[idx[li]] / float64(counts[li]-1)
		nearest := -1.0
		for l, c := range counts {
			if l == li {
				continue
			}
			if m := sums[idx[l]] / float64(c); nearest < 0 || m < nearest {
				nearest = m
			}
		}
		var s float64
		if d := maxf(own, nearest); d > 0 {
			s = (nearest - own) / d
		}
		total += s
		retained++
	}
	return total / float64(retained), true
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func itoa(i int) string { return strconv.Itoa(i) }
