package cluster

// DefaultElbowMaxK is the largest k tried by Elbow when maxK <= 0.
const DefaultElbowMaxK = 10

// ElbowPoint is one point of the inertia curve.
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// Elbow runs k-means for k = 1..maxK and records the inertia of each fit.
// k stops at the number of distinct rows. No knee is chosen.
func Elbow(x *ScaledFeatureMatrix, maxK int, seed int64) ([]ElbowPoint, error) {
	n := x.Rows()
	if n == 0 {
		return nil, &InvalidParameterError{Algorithm: NameKMeans, Param: "rows", Value: 0, Reason: "at least one row is required"}
	}
	if maxK <= 0 {
		maxK = DefaultElbowMaxK
	}
	if d := distinctRows(x.Data, maxK); d < maxK {
		maxK = d
	}
	out := make([]ElbowPoint, 0, maxK)
	for k := 1; k <= maxK; k++ {
		a, err := KMeans{K: k, Seed: seed}.withDefaults().fit(x.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, ElbowPoint{K: k, Inertia: a.Inertia})
	}
	return out, nil
}
