package cluster

import "github.com/KaramelBytes/clusterloom-cli/internal/dataset"

// LabelColumn is the name of the column Run appends to the labeled view.
const LabelColumn = "Cluster"

// Result bundles the outputs of one pipeline run.
type Result struct {
	Dataset    string
	Algorithm  Algorithm
	Features   *FeatureMatrix
	Scaled     *ScaledFeatureMatrix
	Assignment *Assignment
	Summary    *Summary
	// Silhouette is meaningful only when SilhouetteOK is true.
	Silhouette   float64
	SilhouetteOK bool
	Sizes        []ClusterSize
	Clusters     int
	Noise        int
	Projection   *Projection
	// Labeled is the input dataset with the label column appended.
	Labeled *dataset.Dataset
}

// Run executes select, standardize, assign, summarize and quality in order.
func Run(ds *dataset.Dataset, alg Algorithm) (*Result, error) {
	fm, err := SelectNumericFeatures(ds)
	if err != nil {
		return nil, err
	}
	scaled, err := Standardize(fm)
	if err != nil {
		return nil, err
	}
	a, err := Assign(scaled, alg)
	if err != nil {
		return nil, err
	}
	sum, err := Summarize(ds, a)
	if err != nil {
		return nil, err
	}
	proj, err := Project(scaled)
	if err != nil {
		return nil, err
	}
	name := LabelColumn
	for i := 2; ; i++ {
		if _, exists := ds.Column(name); !exists {
			break
		}
		name = LabelColumn + "_" + itoa(i)
	}
	labeled, err := ds.WithLabels(name, a.Labels)
	if err != nil {
		return nil, err
	}
	score, ok := QualityScore(scaled, a)
	return &Result{
		Dataset:      ds.Name,
		Algorithm:    alg,
		Features:     fm,
		Scaled:       scaled,
		Assignment:   a,
		Summary:      sum,
		Silhouette:   score,
		SilhouetteOK: ok,
		Sizes:        a.Sizes(),
		Clusters:     len(a.Clusters()),
		Noise:        a.NoiseCount(),
		Projection:   proj,
		Labeled:      labeled,
	}, nil
}
