package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MissingPolicy decides what happens to numeric cells that are empty or
// hold a missing marker such as "NA".
type MissingPolicy string

const (
	MissingDrop MissingPolicy = "drop"
	MissingMean MissingPolicy = "mean"
	MissingKeep MissingPolicy = "keep"
)

// ParseMissingPolicy validates a policy name. Empty means drop.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MissingDrop:
		return MissingDrop, nil
	case MissingMean:
		return MissingMean, nil
	case MissingKeep:
		return MissingKeep, nil
	}
	return "", fmt.Errorf("unknown missing-value policy %q (want drop, mean or keep)", s)
}

// Options controls loading.
type Options struct {
	// Delimiter for CSV input; 0 picks by extension (tab for .tsv).
	Delimiter rune
	// DecimalSeparator and ThousandsSeparator fix numeric parsing; 0 auto-detects.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows caps data rows read; 0 means no limit.
	MaxRows int
	Missing MissingPolicy
	// Exclude lists columns that are always typed as text.
	Exclude []string
	// SheetName or 1-based SheetIndex pick the XLSX worksheet.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns options with auto-detection and the drop policy.
func DefaultOptions() Options {
	return Options{Missing: MissingDrop}
}

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("dataset is empty")

// Load reads a CSV, TSV or XLSX file based on its extension.
func Load(path string, opt Options) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path, opt)
	case ".csv", ".tsv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		if opt.Delimiter == 0 {
			opt.Delimiter = sniffDelimiter(path)
		}
		return ReadCSV(filepath.Base(path), f, opt)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .csv, .tsv or .xlsx)", filepath.Ext(path))
	}
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ReadCSV parses delimited text with a header row.
func ReadCSV(name string, r io.Reader, opt Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
		if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
			break
		}
	}
	return fromRows(name, rows, opt)
}

// fromRows types the columns of a header-plus-data table and applies the
// missing-value policy. Ragged rows are padded with empty cells.
func fromRows(name string, rows [][]string, opt Options) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	header := rows[0]
	data := rows[1:]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" && !columnHasData(data, len(header)-1) {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	excluded := make(map[string]bool, len(opt.Exclude))
	for _, e := range opt.Exclude {
		excluded[strings.ToLower(strings.TrimSpace(e))] = true
	}

	names := uniqueNames(header)
	cols := make([]Column, len(header))
	for j := range header {
		clean, unit := splitUnits(names[j])
		raw := make([]string, len(data))
		for i, rec := range data {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		cols[j] = Column{Name: clean, Unit: unit, Kind: KindText, Raw: raw}
		if excluded[strings.ToLower(clean)] || excluded[strings.ToLower(names[j])] {
			continue
		}
		if vals, ok := numericValues(raw, opt); ok {
			cols[j].Kind = KindNumeric
			cols[j].Values = vals
		}
	}
	// Unit splitting can collapse two headers into one name.
	names = make([]string, len(cols))
	for j := range cols {
		names[j] = cols[j].Name
	}
	for j, n := range uniqueNames(names) {
		cols[j].Name = n
	}

	ds, err := New(name, cols)
	if err != nil {
		return nil, err
	}
	switch opt.Missing {
	case MissingMean:
		imputeMean(ds)
	case MissingKeep:
	default:
		dropMissing(ds)
	}
	return ds, nil
}

func columnHasData(rows [][]string, j int) bool {
	for _, r := range rows {
		if j < len(r) && strings.TrimSpace(r[j]) != "" {
			return true
		}
	}
	return false
}

func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for j, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = "column_" + strconv.Itoa(j+1)
		}
		if c, ok := seen[n]; ok {
			seen[n] = c + 1
			n = n + "_" + strconv.Itoa(c+1)
		} else {
			seen[n] = 1
		}
		out[j] = n
	}
	return out
}

// numericValues parses a column; ok is false when any present cell is not a
// number or when every cell is missing.
func numericValues(raw []string, opt Options) ([]float64, bool) {
	vals := make([]float64, len(raw))
	present := 0
	for i, s := range raw {
		if isMissingToken(s) {
			vals[i] = math.NaN()
			continue
		}
		f, ok := parseNumeric(s, opt.DecimalSeparator, opt.ThousandsSeparator)
		if !ok {
			return nil, false
		}
		vals[i] = f
		present++
	}
	return vals, present > 0
}

func dropMissing(ds *Dataset) {
	keep := make([]bool, ds.rows)
	kept := 0
	for i := 0; i < ds.rows; i++ {
		keep[i] = true
		for _, c := range ds.Columns {
			if c.Kind == KindNumeric && math.IsNaN(c.Values[i]) {
				keep[i] = false
				break
			}
		}
		if keep[i] {
			kept++
		}
	}
	if kept == ds.rows {
		return
	}
	for j := range ds.Columns {
		c := &ds.Columns[j]
		raw := make([]string, 0, kept)
		var vals []float64
		if c.Values != nil {
			vals = make([]float64, 0, kept)
		}
		for i := 0; i < ds.rows; i++ {
			if !keep[i] {
				continue
			}
			raw = append(raw, c.Raw[i])
			if c.Values != nil {
				vals = append(vals, c.Values[i])
			}
		}
		c.Raw, c.Values = raw, vals
	}
	ds.DroppedRows = ds.rows - kept
	ds.rows = kept
}

func imputeMean(ds *Dataset) {
	for j := range ds.Columns {
		c := &ds.Columns[j]
		if c.Kind != KindNumeric {
			continue
		}
		var sum float64
		n := 0
		for _, v := range c.Values {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 || n == len(c.Values) {
			continue
		}
		mean := sum / float64(n)
		for i, v := range c.Values {
			if math.IsNaN(v) {
				c.Values[i] = mean
				c.Raw[i] = strconv.FormatFloat(mean, 'g', -1, 64)
			}
		}
	}
}
