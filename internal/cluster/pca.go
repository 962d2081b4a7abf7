package cluster

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Projection holds 2-D principal component coordinates for plotting.
// Y is all zeros when the input has a single feature.
type Projection struct {
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	Explained []float64 `json:"explained_variance_ratio"`
}

// Project maps the scaled rows onto their first two principal components.
func Project(x *ScaledFeatureMatrix) (*Projection, error) {
	n := x.Rows()
	if n == 0 {
		return nil, &InvalidParameterError{Param: "rows", Value: 0, Reason: "at least one row is required"}
	}
	_, d := x.Data.Dims()
	p := &Projection{X: make([]float64, n), Y: make([]float64, n)}
	if d == 1 || n == 1 {
		mat.Col(p.X, 0, x.Data)
		p.Explained = []float64{1}
		return p, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x.Data, nil); !ok {
		return nil, &InvalidParameterError{Param: "matrix", Value: "scaled", Reason: "principal component analysis failed"}
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)
	_, m := vecs.Dims()
	comps := 2
	if m < comps {
		comps = m
	}
	var proj mat.Dense
	proj.Mul(x.Data, vecs.Slice(0, d, 0, comps))
	mat.Col(p.X, 0, &proj)
	if comps > 1 {
		mat.Col(p.Y, 1, &proj)
	}
	var total float64
	for _, v := range vars {
		total += v
	}
	for c := 0; c < comps && c < len(vars); c++ {
		if total > 0 {
			p.Explained = append(p.Explained, vars[c]/total)
		}
	}
	return p, nil
}
