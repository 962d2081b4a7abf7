// Package dataset loads tabular files into typed, column-oriented datasets
// that the clustering pipeline reads but never mutates.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Kind is the load-time type of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
	// KindLabel marks a column appended from a cluster assignment. It is
	// never treated as a clustering feature.
	KindLabel Kind = "label"
)

// Column holds one column of a dataset. Values is populated for numeric and
// label columns (NaN marks a missing cell); Raw always holds the cell text.
type Column struct {
	Name   string
	Unit   string
	Kind   Kind
	Values []float64
	Raw    []string
}

// Dataset is an ordered, rectangular table. Column typing is fixed at load.
type Dataset struct {
	Name    string
	Columns []Column
	// DroppedRows counts rows removed by the missing-value policy.
	DroppedRows int
	rows        int
}

// New builds a dataset from prepared columns. All columns must have the same
// length.
func New(name string, cols []Column) (*Dataset, error) {
	rows := -1
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if rows < 0 {
			rows = len(c.Raw)
		}
		if len(c.Raw) != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Raw), rows)
		}
		if c.Kind != KindText && len(c.Values) != rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), rows)
		}
	}
	if rows < 0 {
		rows = 0
	}
	return &Dataset{Name: name, Columns: cols, rows: rows}, nil
}

// FromFloats builds an all-numeric dataset. Handy for callers that already
// hold a matrix in memory.
func FromFloats(name string, names []string, rows [][]float64) (*Dataset, error) {
	cols := make([]Column, len(names))
	for j, n := range names {
		cols[j] = Column{Name: n, Kind: KindNumeric, Values: make([]float64, len(rows)), Raw: make([]string, len(rows))}
	}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), len(names))
		}
		for j, v := range r {
			cols[j].Values[i] = v
			cols[j].Raw[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return New(name, cols)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Numeric returns the numeric columns in their original order.
func (d *Dataset) Numeric() []*Column {
	var out []*Column
	for i := range d.Columns {
		if d.Columns[i].Kind == KindNumeric {
			out = append(out, &d.Columns[i])
		}
	}
	return out
}

// Record returns row i as a column-name keyed map. Numeric cells are float64
// (nil when missing), text cells are strings and label cells are ints.
func (d *Dataset) Record(i int) map[string]any {
	if i < 0 || i >= d.rows {
		return nil
	}
	out := make(map[string]any, len(d.Columns))
	for _, c := range d.Columns {
		switch c.Kind {
		case KindNumeric:
			if math.IsNaN(c.Values[i]) {
				out[c.Name] = nil
			} else {
				out[c.Name] = c.Values[i]
			}
		case KindLabel:
			out[c.Name] = int(c.Values[i])
		default:
			out[c.Name] = c.Raw[i]
		}
	}
	return out
}

// WithLabels returns a new dataset view with an extra label column. The
// receiver is left untouched; column data is shared, not copied.
func (d *Dataset) WithLabels(name string, labels []int) (*Dataset, error) {
	if len(labels) != d.rows {
		return nil, fmt.Errorf("got %d labels for %d rows", len(labels), d.rows)
	}
	if _, ok := d.Column(name); ok {
		return nil, fmt.Errorf("column %q already exists", name)
	}
	lc := Column{Name: name, Kind: KindLabel, Values: make([]float64, len(labels)), Raw: make([]string, len(labels))}
	for i, l := range labels {
		lc.Values[i] = float64(l)
		lc.Raw[i] = strconv.Itoa(l)
	}
	cols := make([]Column, 0, len(d.Columns)+1)
	cols = append(cols, d.Columns...)
	cols = append(cols, lc)
	return &Dataset{Name: d.Name, Columns: cols, DroppedRows: d.DroppedRows, rows: d.rows}, nil
}

// ColumnProfile summarizes one column for schema listings.
type ColumnProfile struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit,omitempty"`
	Kind     Kind    `json:"kind"`
	NonNull  int     `json:"non_null"`
	Missing  int     `json:"missing"`
	Distinct int     `json:"distinct,omitempty"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Mean     float64 `json:"mean,omitempty"`
	Std      float64 `json:"std,omitempty"`
	Top      string  `json:"top,omitempty"`
}

// Profile computes a per-column summary.
func (d *Dataset) Profile() []ColumnProfile {
	out := make([]ColumnProfile, 0, len(d.Columns))
	for _, c := range d.Columns {
		p := ColumnProfile{Name: c.Name, Unit: c.Unit, Kind: c.Kind}
		if c.Kind == KindText {
			counts := map[string]int{}
			for _, r := range c.Raw {
				if isMissingToken(r) {
					p.Missing++
					continue
				}
				p.NonNull++
				counts[r]++
			}
			p.Distinct = len(counts)
			p.Top = topValue(counts)
			out = append(out, p)
			continue
		}
		vals := make([]float64, 0, len(c.Values))
		for _, v := range c.Values {
			if math.IsNaN(v) {
				p.Missing++
				continue
			}
			vals = append(vals, v)
		}
		p.NonNull = len(vals)
		if len(vals) > 0 {
			p.Min, p.Max = vals[0], vals[0]
			for _, v := range vals[1:] {
				p.Min = math.Min(p.Min, v)
				p.Max = math.Max(p.Max, v)
			}
			p.Mean = stat.Mean(vals, nil)
			if len(vals) > 1 {
				p.Std = stat.StdDev(vals, nil)
			}
		}
		out = append(out, p)
	}
	return out
}

func topValue(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
