package cluster

import (
	"math"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// degenerateStd is the standard deviation, relative to the column mean,
// below which a column counts as constant. It is a few ulps, enough to
// absorb the rounding left by sums like 0.1+0.2 against 0.3.
const degenerateStd = 8 * 2.220446049250313e-16

// FeatureMatrix is the numeric part of a dataset, row order preserved.
type FeatureMatrix struct {
	Columns []string
	Data    *mat.Dense
}

// Rows returns the number of rows.
func (m *FeatureMatrix) Rows() int {
	if m == nil || m.Data == nil {
		return 0
	}
	r, _ := m.Data.Dims()
	return r
}

// Row returns a copy of row i.
func (m *FeatureMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.Data)
}

// Column returns a copy of column j.
func (m *FeatureMatrix) Column(j int) []float64 {
	return mat.Col(nil, j, m.Data)
}

// ScaledFeatureMatrix is a FeatureMatrix standardized to zero mean and unit
// population variance per column. Mean and Scale hold the parameters used.
type ScaledFeatureMatrix struct {
	FeatureMatrix
	Mean  []float64
	Scale []float64
}

// SelectNumericFeatures extracts the numeric columns of ds.
func SelectNumericFeatures(ds *dataset.Dataset) (*FeatureMatrix, error) {
	cols := ds.Numeric()
	if len(cols) == 0 {
		return nil, &NoNumericColumnsError{Dataset: ds.Name}
	}
	n := ds.Len()
	names := make([]string, len(cols))
	for j, c := range cols {
		names[j] = c.Name
	}
	if n == 0 {
		return &FeatureMatrix{Columns: names}, nil
	}
	data := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		for i, v := range c.Values {
			if math.IsNaN(v) {
				return nil, &MissingValueError{Column: c.Name, Row: i}
			}
			data.Set(i, j, v)
		}
	}
	return &FeatureMatrix{Columns: names, Data: data}, nil
}

// Standardize centers every column and divides it by its population
// standard deviation.
func Standardize(m *FeatureMatrix) (*ScaledFeatureMatrix, error) {
	n := m.Rows()
	if n == 0 {
		return nil, &InvalidParameterError{Param: "rows", Value: 0, Reason: "at least one row is required"}
	}
	_, d := m.Data.Dims()
	out := mat.NewDense(n, d, nil)
	means := make([]float64, d)
	scales := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, m.Data)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || std <= degenerateStd*math.Abs(mean) || math.IsNaN(std) {
			return nil, &DegenerateFeatureError{Column: m.Columns[j]}
		}
		means[j], scales[j] = mean, std
		for i, v := range col {
			out.Set(i, j, (v-mean)/std)
		}
	}
	return &ScaledFeatureMatrix{
		FeatureMatrix: FeatureMatrix{Columns: append([]string(nil), m.Columns...), Data: out},
		Mean:          means,
		Scale:         scales,
	}, nil
}
