package cluster

import "fmt"

// NoNumericColumnsError means the dataset has nothing to cluster on.
type NoNumericColumnsError struct {
	Dataset string
}

func (e *NoNumericColumnsError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("no numeric columns to cluster in %s", e.Dataset)
	}
	return "no numeric columns to cluster"
}

// DegenerateFeatureError means a column has zero variance and cannot be
// standardized.
type DegenerateFeatureError struct {
	Column string
}

func (e *DegenerateFeatureError) Error() string {
	return fmt.Sprintf("column %q has zero variance and cannot be standardized", e.Column)
}

// MissingValueError means a numeric cell is missing. Load with the drop or
// mean policy to avoid it.
type MissingValueError struct {
	Column string
	Row    int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("column %q has a missing value at row %d", e.Column, e.Row)
}

// InvalidParameterError reports an algorithm parameter outside its domain.
type InvalidParameterError struct {
	Algorithm string
	Param     string
	Value     any
	Reason    string
}

func (e *InvalidParameterError) Error() string {
	if e.Algorithm == "" {
		return fmt.Sprintf("invalid %s=%v: %s", e.Param, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s=%v: %s", e.Algorithm, e.Param, e.Value, e.Reason)
}

// EmptyClusterError means a cluster ended up with no rows.
type EmptyClusterError struct {
	Label  int
	Column string
}

func (e *EmptyClusterError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("cluster %d has no rows with a value for %q", e.Label, e.Column)
	}
	return fmt.Sprintf("cluster %d has no rows", e.Label)
}
