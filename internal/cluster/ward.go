package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Hierarchical is agglomerative clustering with ward linkage, cut into K
// groups. Rows are the observations being merged.
type Hierarchical struct {
	K int
}

func (Hierarchical) Name() string { return NameHierarchical }

func (h Hierarchical) Params() map[string]any {
	return map[string]any{"k": h.K, "linkage": "ward"}
}

func (h Hierarchical) assign(x *mat.Dense) (*Assignment, error) {
	n, _ := x.Dims()
	if h.K < 2 {
		return nil, invalid(NameHierarchical, "k", h.K, "must be at least 2")
	}
	if h.K > n {
		return nil, invalid(NameHierarchical, "k", h.K, "exceeds row count %d", n)
	}
	merges := WardLinkage(x)
	return &Assignment{Labels: CutTree(merges, n, h.K), Merges: merges}, nil
}

// condensed indexes the upper triangle of an n x n distance matrix.
type condensed struct {
	n int
	d []float64
}

func newCondensed(n int) *condensed {
	return &condensed{n: n, d: make([]float64, n*(n-1)/2)}
}

func (c *condensed) idx(i, j int) int {
	if i > j {
		i, j = j, i
	}
	return c.n*i - i*(i+1)/2 + (j - i - 1)
}

func (c *condensed) at(i, j int) float64     { return c.d[c.idx(i, j)] }
func (c *condensed) set(i, j int, v float64) { c.d[c.idx(i, j)] = v }

type rawMerge struct {
	a, b int
	dist float64
}

// WardLinkage builds the full ward merge tree over the rows of x using the
// nearest-neighbor chain and Lance-Williams updates on squared distances.
// The result has n-1 merges sorted by distance, in the usual linkage
// encoding: Left < Right, ids >= n name earlier merges.
func WardLinkage(x *mat.Dense) []Merge {
	n, _ := x.Dims()
	if n < 2 {
		return nil
	}
	rows := denseRows(x)
	d2 := newCondensed(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d2.set(i, j, sqDist(rows[i], rows[j]))
		}
	}
	size := make([]int, n)
	active := make([]bool, n)
	for i := range size {
		size[i] = 1
		active[i] = true
	}

	raw := make([]rawMerge, 0, n-1)
	chain := make([]int, 0, n)
	for step := 0; step < n-1; step++ {
		if len(chain) == 0 {
			for i := range active {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}
		var a, b int
		var dmin float64
		for {
			a = chain[len(chain)-1]
			b, dmin = -1, math.Inf(1)
			if len(chain) >= 2 {
				b = chain[len(chain)-2]
				dmin = d2.at(a, b)
			}
			for k := 0; k < n; k++ {
				if !active[k] || k == a {
					continue
				}
				if v := d2.at(a, k); v < dmin {
					b, dmin = k, v
				}
			}
			if len(chain) >= 2 && b == chain[len(chain)-2] {
				break
			}
			chain = append(chain, b)
		}
		chain = chain[:len(chain)-2]
		if a > b {
			a, b = b, a
		}
		raw = append(raw, rawMerge{a: a, b: b, dist: math.Sqrt(math.Max(dmin, 0))})

		na, nb := float64(size[a]), float64(size[b])
		for k := 0; k < n; k++ {
			if !active[k] || k == a || k == b {
				continue
			}
			nk := float64(size[k])
			v := ((na+nk)*d2.at(a, k) + (nb+nk)*d2.at(b, k) - nk*dmin) / (na + nb + nk)
			d2.set(b, k, math.Max(v, 0))
		}
		active[a] = false
		size[b] += size[a]
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].dist < raw[j].dist })

	parent := make([]int, 2*n-1)
	sizes := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
		if i < n {
			sizes[i] = 1
		}
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	merges := make([]Merge, n-1)
	for i, m := range raw {
		ra, rb := find(m.a), find(m.b)
		if ra > rb {
			ra, rb = rb, ra
		}
		id := n + i
		sizes[id] = sizes[ra] + sizes[rb]
		parent[ra], parent[rb] = id, id
		merges[i] = Merge{Left: ra, Right: rb, Distance: m.dist, Size: sizes[id]}
	}
	return merges
}

// CutTree applies the first n-k merges and labels each row by its group,
// numbering groups by first appearance in row order.
func CutTree(merges []Merge, n, k int) []int {
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	stop := n - k
	if stop > len(merges) {
		stop = len(merges)
	}
	for i := 0; i < stop; i++ {
		parent[merges[i].Left] = n + i
		parent[merges[i].Right] = n + i
	}
	root := func(i int) int {
		for parent[i] != i {
			i = parent[i]
		}
		return i
	}
	labels := make([]int, n)
	for i := range labels {
		labels[i] = root(i)
	}
	relabel(labels)
	return labels
}

// DendrogramNode is a node of a (possibly truncated) merge tree.
type DendrogramNode struct {
	ID       int
	Size     int
	Height   float64
	Children []*DendrogramNode
}

// Leaf reports whether the node is drawn as a leaf.
func (d *DendrogramNode) Leaf() bool { return len(d.Children) == 0 }

// Dendrogram returns the merge tree rooted at the last merge, truncated so
// that at most leaves groups are shown as leaves. leaves <= 0 keeps every row.
func Dendrogram(merges []Merge, n, leaves int) *DendrogramNode {
	if n == 0 {
		return nil
	}
	if len(merges) == 0 {
		return &DendrogramNode{ID: 0, Size: 1}
	}
	if leaves <= 0 || leaves > n {
		leaves = n
	}
	// Merges with index below cutoff are collapsed into leaves.
	cutoff := n - leaves
	var build func(id int) *DendrogramNode
	build = func(id int) *DendrogramNode {
		if id < n {
			return &DendrogramNode{ID: id, Size: 1}
		}
		m := merges[id-n]
		if id-n < cutoff {
			return &DendrogramNode{ID: id, Size: m.Size}
		}
		return &DendrogramNode{
			ID:       id,
			Size:     m.Size,
			Height:   m.Distance,
			Children: []*DendrogramNode{build(m.Left), build(m.Right)},
		}
	}
	return build(n + len(merges) - 1)
}
