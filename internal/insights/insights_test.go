package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/clusterloom-cli/internal/ai"
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

func result(t *testing.T, csv, algo string, p cluster.Params) *cluster.Result {
	t.Helper()
	ds, err := dataset.ReadCSV("c.csv", strings.NewReader(csv), dataset.DefaultOptions())
	require.NoError(t, err)
	alg, err := cluster.NewAlgorithm(algo, p)
	require.NoError(t, err)
	res, err := cluster.Run(ds, alg)
	require.NoError(t, err)
	return res
}

const customers = "Age,Spending\n" +
	"20,90\n22,95\n21,92\n" +
	"60,10\n62,12\n61,11\n"

func TestDescribeTraitsAndActions(t *testing.T) {
	res := result(t, customers, "kmeans", cluster.Params{K: 2})
	r := Describe(res)
	require.Len(t, r.Segments, 2)

	young := r.Segments[0]
	assert.Equal(t, 0, young.Label)
	assert.InDelta(t, 0.5, young.Share, 1e-12)
	require.Len(t, young.Traits, 2)
	for _, tr := range young.Traits {
		assert.GreaterOrEqual(t, tr.Z*tr.Z, TraitThreshold*TraitThreshold)
	}
	assert.Equal(t, "strong structure", r.Quality)
	assert.Zero(t, r.NoiseShare)

	md := r.Markdown()
	assert.Contains(t, md, "[INSIGHTS]")
	assert.Contains(t, md, "- Cluster 0 (50% of rows)")
	assert.Contains(t, md, "low Age")
	assert.Contains(t, md, "high Spending")
	assert.NotContains(t, md, "Noise:")
}

func TestActionRules(t *testing.T) {
	assert.Equal(t, ActionMaintain, action(nil))
	assert.Equal(t, ActionAmplify, action([]Trait{{Z: 1.2}, {Z: -0.6}}))
	assert.Equal(t, ActionTurnaround, action([]Trait{{Z: -1.2}, {Z: 0.6}}))
}

func TestDescribeNoise(t *testing.T) {
	csv := customers + "40,50\n"
	res := result(t, csv, "dbscan", cluster.Params{Eps: 0.5, MinSamples: 2})
	r := Describe(res)
	assert.InDelta(t, 1.0/7, r.NoiseShare, 1e-12)
	assert.Contains(t, r.Markdown(), "- Noise: 14% of rows")
	for _, s := range r.Segments {
		assert.NotEqual(t, cluster.Noise, s.Label)
	}
}

type fakeRuntime struct {
	got  ai.GenerateRequest
	text string
	err  error
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.text}}}}, nil
}

func TestGenerateBuildsPrompt(t *testing.T) {
	rt := &fakeRuntime{text: "  Two segments.  "}
	out, err := Generate(context.Background(), rt, "[CLUSTER SIZES]\n- Cluster 0: 3 rows\n", Options{Model: "m", MaxTokens: 100, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Two segments.", out)
	require.Len(t, rt.got.Messages, 2)
	assert.Equal(t, "system", rt.got.Messages[0].Role)
	assert.Contains(t, rt.got.Messages[1].Content, "[CLUSTER SIZES]")
	assert.Equal(t, "m", rt.got.Model)
	assert.Equal(t, 100, rt.got.MaxTokens)
}

func TestGenerateTruncatesLongReports(t *testing.T) {
	rt := &fakeRuntime{text: "ok"}
	long := strings.Repeat("Cluster row with several words\n", 500)
	_, err := Generate(context.Background(), rt, long, Options{Model: "m", PromptTokenLimit: 50})
	require.NoError(t, err)
	assert.Less(t, len(rt.got.Messages[1].Content), len(long))
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(context.Background(), nil, "r", Options{})
	require.Error(t, err)

	_, err = Generate(context.Background(), &fakeRuntime{text: " "}, "r", Options{Model: "m"})
	require.ErrorIs(t, err, ErrEmptyAnswer)

	boom := &ai.ServerError{APIError: &ai.APIError{StatusCode: 502}}
	_, err = Generate(context.Background(), &fakeRuntime{err: boom}, "r", Options{Model: "m"})
	var se *ai.ServerError
	require.True(t, errors.As(err, &se))
}
