package cluster

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestSelectNumericFeaturesKeepsOrder(t *testing.T) {
	in := "name,age,city,score\nann,30,rome,1.5\nbob,40,oslo,2.5\n"
	ds, err := dataset.ReadCSV("people.csv", strings.NewReader(in), dataset.DefaultOptions())
	require.NoError(t, err)

	fm, err := SelectNumericFeatures(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "score"}, fm.Columns)
	assert.Equal(t, 2, fm.Rows())
	assert.Equal(t, []float64{40, 2.5}, fm.Row(1))
}

func TestSelectNumericFeaturesNoNumeric(t *testing.T) {
	ds, err := dataset.ReadCSV("words.csv", strings.NewReader("a,b\nx,y\n"), dataset.DefaultOptions())
	require.NoError(t, err)

	_, err = SelectNumericFeatures(ds)
	var target *NoNumericColumnsError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "words.csv", target.Dataset)
}

func TestSelectNumericFeaturesMissingValue(t *testing.T) {
	opt := dataset.DefaultOptions()
	opt.Missing = dataset.MissingKeep
	ds, err := dataset.ReadCSV("gaps.csv", strings.NewReader("a,b\n1,2\n3,\n"), opt)
	require.NoError(t, err)

	_, err = SelectNumericFeatures(ds)
	var target *MissingValueError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "b", target.Column)
	assert.Equal(t, 1, target.Row)
}

func TestStandardizeMeanZeroStdOne(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		sc := scaledOf(t, randomDataset(t, 50, 4, seed))
		_, d := sc.Data.Dims()
		col := make([]float64, sc.Rows())
		for j := 0; j < d; j++ {
			mat.Col(col, j, sc.Data)
			mean, std := stat.PopMeanStdDev(col, nil)
			assert.InDelta(t, 0, mean, 1e-9)
			assert.InDelta(t, 1, std, 1e-9)
		}
		assert.Len(t, sc.Mean, d)
		assert.Len(t, sc.Scale, d)
	}
}

func TestStandardizeDoesNotTouchInput(t *testing.T) {
	fm, err := SelectNumericFeatures(triplets(t))
	require.NoError(t, err)
	before := mat.DenseCopyOf(fm.Data)
	_, err = Standardize(fm)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, fm.Data))
}

func TestStandardizeConstantColumn(t *testing.T) {
	ds, err := dataset.FromFloats("const", []string{"x", "flat"}, [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}})
	require.NoError(t, err)
	fm, err := SelectNumericFeatures(ds)
	require.NoError(t, err)

	sc, err := Standardize(fm)
	assert.Nil(t, sc)
	var target *DegenerateFeatureError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "flat", target.Column)
	assert.Contains(t, err.Error(), "flat")
}

func TestStandardizeRoundingNoiseIsConstant(t *testing.T) {
	a, b := 0.1, 0.2
	ds, err := dataset.FromFloats("noise", []string{"x", "flat"}, [][]float64{{1, a + b}, {2, 0.3}, {3, 0.3}})
	require.NoError(t, err)
	fm, err := SelectNumericFeatures(ds)
	require.NoError(t, err)

	_, err = Standardize(fm)
	var target *DegenerateFeatureError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "flat", target.Column)
}

func TestStandardizeSmallRealSpread(t *testing.T) {
	ds, err := dataset.FromFloats("tiny", []string{"x"}, [][]float64{{1e6}, {1e6 + 1e-7}, {1e6}})
	require.NoError(t, err)
	fm, err := SelectNumericFeatures(ds)
	require.NoError(t, err)

	sc, err := Standardize(fm)
	require.NoError(t, err)
	col := sc.Column(0)
	mean, std := stat.PopMeanStdDev(col, nil)
	assert.InDelta(t, 0, mean, 1e-6)
	assert.InDelta(t, 1, std, 1e-6)
	assert.Greater(t, col[1], col[0])
}
