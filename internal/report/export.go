package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

// WriteLabeledCSV writes every column of ds, units restored into headers.
// Pass the labeled view from a result to get the cluster column.
func WriteLabeledCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(ds.Columns))
	for j, c := range ds.Columns {
		header[j] = c.Name
		if c.Unit != "" {
			header[j] = fmt.Sprintf("%s (%s)", c.Name, c.Unit)
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range ds.Columns {
			rec[j] = c.Raw[i]
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
