package cluster

import (
	"math"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// KMeans partitions rows into K clusters around centroids. Seeding uses
// k-means++ from a source seeded with Seed, so results are reproducible.
// The best of NInit restarts (lowest inertia) is kept.
type KMeans struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
	// Tol stops Lloyd iterations once the summed squared centroid shift
	// falls below Tol times the mean feature variance.
	Tol float64
}

const (
	defaultNInit   = 10
	defaultMaxIter = 300
	defaultTol     = 1e-4
)

func (KMeans) Name() string { return NameKMeans }

func (k KMeans) Params() map[string]any {
	k = k.withDefaults()
	return map[string]any{"k": k.K, "seed": k.Seed, "n_init": k.NInit, "max_iter": k.MaxIter}
}

func (k KMeans) withDefaults() KMeans {
	if k.NInit <= 0 {
		k.NInit = defaultNInit
	}
	if k.MaxIter <= 0 {
		k.MaxIter = defaultMaxIter
	}
	if k.Tol <= 0 {
		k.Tol = defaultTol
	}
	return k
}

func (k KMeans) assign(x *mat.Dense) (*Assignment, error) {
	n, _ := x.Dims()
	if k.K < 2 {
		return nil, invalid(NameKMeans, "k", k.K, "must be at least 2")
	}
	if k.K > n {
		return nil, invalid(NameKMeans, "k", k.K, "exceeds row count %d", n)
	}
	if d := distinctRows(x, k.K); d < k.K {
		return nil, invalid(NameKMeans, "k", k.K, "only %d distinct rows", d)
	}
	return k.withDefaults().fit(x)
}

// fit runs the restarts without the k >= 2 check, so the elbow helper can
// use k = 1.
func (k KMeans) fit(x *mat.Dense) (*Assignment, error) {
	rows := denseRows(x)
	rng := rand.New(rand.NewSource(k.Seed))
	tol := k.Tol * meanVariance(rows)

	var best *Assignment
	var lastErr error
	for run := 0; run < k.NInit; run++ {
		centers := seedPlusPlus(rows, k.K, rng)
		labels, fitted, inertia, err := lloyd(rows, centers, k.MaxIter, tol)
		if err != nil {
			lastErr = err
			continue
		}
		if best == nil || inertia < best.Inertia {
			best = &Assignment{Labels: labels, Inertia: inertia, Centroids: fitted}
		}
	}
	if best == nil {
		return nil, lastErr
	}
	mapping := relabel(best.Labels)
	_, d := best.Centroids.Dims()
	ordered := mat.NewDense(k.K, d, nil)
	for old, nl := range mapping {
		ordered.SetRow(nl, best.Centroids.RawRowView(old))
	}
	best.Centroids = ordered
	return best, nil
}

// seedPlusPlus picks k starting centers, each drawn with probability
// proportional to its squared distance from the nearest center chosen so far.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centers := make([][]float64, 0, k)
	chosen := make([]bool, n)
	first := rng.Intn(n)
	chosen[first] = true
	centers = append(centers, append([]float64(nil), rows[first]...))

	d2 := make([]float64, n)
	for i := range rows {
		d2[i] = sqDist(rows[i], centers[0])
	}
	for len(centers) < k {
		var total float64
		for _, v := range d2 {
			total += v
		}
		pick := -1
		if total > 0 {
			r := rng.Float64() * total
			var acc float64
			for i, v := range d2 {
				if v == 0 {
					continue
				}
				acc += v
				pick = i
				if acc > r {
					break
				}
			}
		} else {
			for i := range rows {
				if !chosen[i] {
					pick = i
					break
				}
			}
		}
		chosen[pick] = true
		c := append([]float64(nil), rows[pick]...)
		centers = append(centers, c)
		for i := range rows {
			if d := sqDist(rows[i], c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates nearest-center assignment and mean updates. An empty
// cluster takes over the row farthest from its own center; if that is not
// possible the run fails with EmptyClusterError.
func lloyd(rows [][]float64, centers [][]float64, maxIter int, tol float64) ([]int, *mat.Dense, float64, error) {
	n, k := len(rows), len(centers)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for iter := 0; iter < maxIter; iter++ {
		changed := assignNearest(rows, centers, labels)
		if err := relocateEmpty(rows, centers, labels); err != nil {
			return nil, nil, 0, err
		}
		next := means(rows, labels, k)
		var shift float64
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if !changed || shift <= tol {
			break
		}
	}
	assignNearest(rows, centers, labels)
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for c, cnt := range counts {
		if cnt == 0 {
			return nil, nil, 0, &EmptyClusterError{Label: c}
		}
	}
	var inertia float64
	for i, l := range labels {
		inertia += sqDist(rows[i], centers[l])
	}
	out := mat.NewDense(k, len(rows[0]), nil)
	for c := range centers {
		out.SetRow(c, centers[c])
	}
	return labels, out, inertia, nil
}

func assignNearest(rows [][]float64, centers [][]float64, labels []int) bool {
	changed := false
	for i, r := range rows {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centers {
			if d := sqDist(r, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

func relocateEmpty(rows [][]float64, centers [][]float64, labels []int) error {
	counts := make([]int, len(centers))
	for _, l := range labels {
		counts[l]++
	}
	for c, cnt := range counts {
		if cnt > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, l := range labels {
			if counts[l] < 2 {
				continue
			}
			if d := sqDist(rows[i], centers[l]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			return &EmptyClusterError{Label: c}
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		copy(centers[c], rows[far])
	}
	return nil
}

func means(rows [][]float64, labels []int, k int) [][]float64 {
	d := len(rows[0])
	out := make([][]float64, k)
	counts := make([]int, k)
	for c := range out {
		out[c] = make([]float64, d)
	}
	for i, l := range labels {
		counts[l]++
		for j, v := range rows[i] {
			out[l][j] += v
		}
	}
	for c := range out {
		if counts[c] == 0 {
			continue
		}
		for j := range out[c] {
			out[c][j] /= float64(counts[c])
		}
	}
	return out
}

func meanVariance(rows [][]float64) float64 {
	n, d := len(rows), len(rows[0])
	var total float64
	for j := 0; j < d; j++ {
		var mean float64
		for _, r := range rows {
			mean += r[j]
		}
		mean /= float64(n)
		for _, r := range rows {
			total += (r[j] - mean) * (r[j] - mean)
		}
	}
	return total / float64(n*d)
}

// distinctRows counts distinct rows, stopping early once limit is reached.
func distinctRows(x *mat.Dense, limit int) int {
	n, d := x.Dims()
	seen := make(map[string]struct{}, limit)
	key := make([]byte, 0, d*17)
	for i := 0; i < n; i++ {
		key = key[:0]
		for _, v := range x.RawRowView(i) {
			if v == 0 {
				v = 0 // fold -0 into 0
			}
			key = strconv.AppendUint(key, math.Float64bits(v), 16)
			key = append(key, ',')
		}
		seen[string(key)] = struct{}{}
		if len(seen) >= limit {
			return len(seen)
		}
	}
	return len(seen)
}

func denseRows(x *mat.Dense) [][]float64 {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
