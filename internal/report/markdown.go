// Package report renders clustering results as Markdown, JSON, CSV, HTML
// dashboards and PNG plots.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/dataset"
)

// Markdown renders the result in bracketed sections. elbow may be nil.
func Markdown(res *cluster.Result, elbow []cluster.ElbowPoint) string {
	var b strings.Builder
	rows := len(res.Assignment.Labels)

	b.WriteString("[CLUSTERING SUMMARY]\n")
	if res.Dataset != "" {
		fmt.Fprintf(&b, "File: %s\n", res.Dataset)
	}
	fmt.Fprintf(&b, "Rows: %d\n", rows)
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(res.Features.Columns, ", "))
	fmt.Fprintf(&b, "Algorithm: %s (%s)\n", res.Algorithm.Name(), FormatParams(res.Algorithm.Params()))
	fmt.Fprintf(&b, "Clusters: %d\n", res.Clusters)
	if res.Algorithm.Name() == cluster.NameDBSCAN {
		fmt.Fprintf(&b, "Noise points: %d\n", res.Noise)
	}
	if res.Assignment.Algorithm == cluster.NameKMeans {
		fmt.Fprintf(&b, "Inertia: %.4f\n", res.Assignment.Inertia)
	}

	b.WriteString("\n[CLUSTER SIZES]\n")
	for _, s := range res.Sizes {
		fmt.Fprintf(&b, "- %s: %d rows (%.1f%%)\n", LabelName(s.Label), s.Size, pct(s.Size, rows))
	}

	if res.Summary != nil && len(res.Summary.Rows) > 0 {
		b.WriteString("\n[MEAN BY CLUSTER]\n")
		writeTable(&b, res.Summary, func(r cluster.SummaryRow) []float64 { return r.Mean })
		b.WriteString("\n[STD BY CLUSTER]\n")
		writeTable(&b, res.Summary, func(r cluster.SummaryRow) []float64 { return r.Std })
	}

	b.WriteString("\n[QUALITY]\n")
	if res.SilhouetteOK {
		fmt.Fprintf(&b, "Silhouette score: %.4f (%s)\n", res.Silhouette, QualityBand(res.Silhouette, true))
	} else {
		b.WriteString("Silhouette score: undefined (needs at least 2 clusters with 2+ members each)\n")
	}

	if len(elbow) > 0 {
		b.WriteString("\n[ELBOW]\n")
		for _, p := range elbow {
			fmt.Fprintf(&b, "- k=%d: inertia %.4f\n", p.K, p.Inertia)
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, s *cluster.Summary, pick func(cluster.SummaryRow) []float64) {
	b.WriteString("| Cluster | Size |")
	for _, c := range s.Columns {
		fmt.Fprintf(b, " %s |", safeCell(c))
	}
	b.WriteString("\n|---|---|")
	for range s.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range s.Rows {
		fmt.Fprintf(b, "| %d | %d |", r.Label, r.Size)
		for _, v := range pick(r) {
			fmt.Fprintf(b, " %.4g |", v)
		}
		b.WriteString("\n")
	}
}

// ProfileMarkdown renders the column schema of a dataset.
func ProfileMarkdown(ds *dataset.Dataset) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if ds.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", ds.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", ds.Len())
	if ds.DroppedRows > 0 {
		fmt.Fprintf(&b, "Dropped rows (missing values): %d\n", ds.DroppedRows)
	}
	fmt.Fprintf(&b, "Columns: %d (numeric %d)\n\n", len(ds.Columns), len(ds.Numeric()))

	b.WriteString("[SCHEMA]\n")
	for _, p := range ds.Profile() {
		name := safeCell(p.Name)
		if p.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, p.Unit)
		}
		total := p.NonNull + p.Missing
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", name, p.Kind, p.NonNull, pct(p.Missing, total))
		switch p.Kind {
		case dataset.KindNumeric:
			fmt.Fprintf(&b, ": min %.4g, max %.4g, mean %.4g, std %.4g", p.Min, p.Max, p.Mean, p.Std)
		case dataset.KindText:
			if p.Top != "" {
				fmt.Fprintf(&b, ": unique %d, top %s", p.Distinct, safeCell(p.Top))
			}
		}
		b.WriteString("\n")
	}
	if len(ds.Numeric()) == 0 {
		b.WriteString("\n[NOTES]\n- No numeric columns: this file cannot be clustered.\n")
	}
	return b.String()
}

// FormatParams renders parameters as "k=3, seed=0" with sorted keys.
func FormatParams(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, ", ")
}

// LabelName is the display name of a cluster label.
func LabelName(l int) string {
	if l == cluster.Noise {
		return "Noise"
	}
	return fmt.Sprintf("Cluster %d", l)
}

// QualityBand buckets a silhouette score into a word.
func QualityBand(s float64, ok bool) string {
	switch {
	case !ok:
		return "undefined"
	case s < 0.25:
		return "weak structure"
	case s < 0.5:
		return "moderate structure"
	default:
		return "strong structure"
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func safeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
