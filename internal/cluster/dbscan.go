package cluster

import "gonum.org/v1/gonum/mat"

// DBSCAN groups rows that are density-connected: a core row has at least
// MinSamples rows (itself included) within Eps, and clusters grow through
// chains of core rows. Rows reachable from no core row are Noise.
type DBSCAN struct {
	Eps        float64
	MinSamples int
}

const unvisited = -2

func (DBSCAN) Name() string { return NameDBSCAN }

func (d DBSCAN) Params() map[string]any {
	return map[string]any{"eps": d.Eps, "min_samples": d.MinSamples}
}

func (d DBSCAN) assign(x *mat.Dense) (*Assignment, error) {
	if !(d.Eps > 0) {
		return nil, invalid(NameDBSCAN, "eps", d.Eps, "must be positive")
	}
	if d.MinSamples < 1 {
		return nil, invalid(NameDBSCAN, "min_samples", d.MinSamples, "must be at least 1")
	}
	rows := denseRows(x)
	eps2 := d.Eps * d.Eps
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = unvisited
	}

	next := 0
	for i := range rows {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(rows, i, eps2)
		if len(neighbors) < d.MinSamples {
			labels[i] = Noise
			continue
		}
		d.expand(rows, labels, i, neighbors, next, eps2)
		next++
	}
	return &Assignment{Labels: labels}, nil
}

// expand grows cluster id from core row i breadth-first. Noise rows reached
// here become border rows of the cluster but are not expanded further.
func (d DBSCAN) expand(rows [][]float64, labels []int, i int, neighbors []int, id int, eps2 float64) {
	labels[i] = id
	queue := append([]int(nil), neighbors...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		if labels[j] == Noise {
			labels[j] = id
			continue
		}
		if labels[j] != unvisited {
			continue
		}
		labels[j] = id
		nb := regionQuery(rows, j, eps2)
		if len(nb) >= d.MinSamples {
			queue = append(queue, nb...)
		}
	}
}

// regionQuery returns every row within eps of row i, including i.
func regionQuery(rows [][]float64, i int, eps2 float64) []int {
	var out []int
	for j := range rows {
		if sqDist(rows[i], rows[j]) <= eps2 {
			out = append(out, j)
		}
	}
	return out
}
