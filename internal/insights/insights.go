// Package insights turns a clustering result into segment commentary, either
// rule-based or written by an LLM runtime.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/report"
)

// TraitThreshold is the minimum |z| of a cluster mean for it to count as a
// distinguishing trait.
const TraitThreshold = 0.5

const maxTraits = 3

// Suggested actions.
const (
	ActionAmplify    = "amplify"
	ActionTurnaround = "turnaround"
	ActionMaintain   = "maintain"
)

// Trait is one column where a cluster departs from the overall mean.
type Trait struct {
	Column  string  `json:"column"`
	Mean    float64 `json:"mean"`
	Overall float64 `json:"overall"`
	Z       float64 `json:"z"`
}

// High reports whether the cluster sits above the overall mean.
func (t Trait) High() bool { return t.Z > 0 }

// Segment describes one cluster.
type Segment struct {
	Label  int     `json:"label"`
	Size   int     `json:"size"`
	Share  float64 `json:"share"`
	Traits []Trait `json:"traits"`
	Action string  `json:"action"`
}

// Report is the rule-based commentary of one result.
type Report struct {
	Segments   []Segment `json:"segments"`
	NoiseShare float64   `json:"noise_share"`
	Quality    string    `json:"quality"`
}

// Describe builds commentary from the summary and scaling parameters of res.
func Describe(res *cluster.Result) *Report {
	rows := len(res.Assignment.Labels)
	out := &Report{Quality: report.QualityBand(res.Silhouette, res.SilhouetteOK)}
	if rows > 0 {
		out.NoiseShare = float64(res.Noise) / float64(rows)
	}
	if res.Summary == nil {
		return out
	}
	for _, r := range res.Summary.Rows {
		seg := Segment{Label: r.Label, Size: r.Size}
		if rows > 0 {
			seg.Share = float64(r.Size) / float64(rows)
		}
		for j, col := range res.Summary.Columns {
			scale := res.Scaled.Scale[j]
			if scale == 0 || math.IsNaN(scale) {
				continue
			}
			z := (r.Mean[j] - res.Scaled.Mean[j]) / scale
			if math.Abs(z) >= TraitThreshold {
				seg.Traits = append(seg.Traits, Trait{Column: col, Mean: r.Mean[j], Overall: res.Scaled.Mean[j], Z: z})
			}
		}
		sort.SliceStable(seg.Traits, func(a, b int) bool {
			return math.Abs(seg.Traits[a].Z) > math.Abs(seg.Traits[b].Z)
		})
		if len(seg.Traits) > maxTraits {
			seg.Traits = seg.Traits[:maxTraits]
		}
		seg.Action = action(seg.Traits)
		out.Segments = append(out.Segments, seg)
	}
	return out
}

func action(traits []Trait) string {
	var high, low float64
	for _, t := range traits {
		if t.High() {
			high += t.Z
		} else {
			low -= t.Z
		}
	}
	switch {
	case high == 0 && low == 0:
		return ActionMaintain
	case low > high:
		return ActionTurnaround
	default:
		return ActionAmplify
	}
}

// Markdown renders the report as an [INSIGHTS] section.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[INSIGHTS]\n")
	for _, s := range r.Segments {
		fmt.Fprintf(&b, "- Cluster %d (%.0f%% of rows): ", s.Label, s.Share*100)
		if len(s.Traits) == 0 {
			b.WriteString("close to the overall average on every feature")
		} else {
			parts := make([]string, len(s.Traits))
			for i, t := range s.Traits {
				dir := "low"
				if t.High() {
					dir = "high"
				}
				parts[i] = fmt.Sprintf("%s %s (%.4g vs %.4g overall)", dir, t.Column, t.Mean, t.Overall)
			}
			b.WriteString(strings.Join(parts, ", "))
		}
		fmt.Fprintf(&b, ". Suggested action: %s.\n", actionText(s.Action))
	}
	if r.NoiseShare > 0 {
		fmt.Fprintf(&b, "- Noise: %.0f%% of rows fit no dense group; review them as outliers.\n", r.NoiseShare*100)
	}
	fmt.Fprintf(&b, "- Separation: %s.\n", r.Quality)
	return b.String()
}

func actionText(a string) string {
	switch a {
	case ActionAmplify:
		return "amplify (reward and upsell this segment)"
	case ActionTurnaround:
		return "turnaround (re-engage with targeted offers)"
	default:
		return "maintain (keep current treatment)"
	}
}
