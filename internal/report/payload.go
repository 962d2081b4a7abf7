package report

import (
	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

// Payload is the JSON form of a result. It holds no matrix types.
type Payload struct {
	Dataset    string                `json:"dataset"`
	Algorithm  string                `json:"algorithm"`
	Params     map[string]any        `json:"params"`
	Features   []string              `json:"features"`
	Rows       int                   `json:"rows"`
	Labels     []int                 `json:"labels"`
	Clusters   int                   `json:"clusters"`
	Noise      int                   `json:"noise"`
	Sizes      []cluster.ClusterSize `json:"sizes"`
	Silhouette *float64              `json:"silhouette"`
	Inertia    *float64              `json:"inertia,omitempty"`
	Summary    *cluster.Summary      `json:"summary"`
	Merges     []cluster.Merge       `json:"merges,omitempty"`
	Projection *cluster.Projection   `json:"projection,omitempty"`
	Elbow      []cluster.ElbowPoint  `json:"elbow,omitempty"`
	Insights   string                `json:"insights,omitempty"`
}

// NewPayload flattens a result. elbow may be nil.
func NewPayload(res *cluster.Result, elbow []cluster.ElbowPoint) *Payload {
	p := &Payload{
		Dataset:    res.Dataset,
		Algorithm:  res.Algorithm.Name(),
		Params:     res.Algorithm.Params(),
		Features:   res.Features.Columns,
		Rows:       len(res.Assignment.Labels),
		Labels:     res.Assignment.Labels,
		Clusters:   res.Clusters,
		Noise:      res.Noise,
		Sizes:      res.Sizes,
		Summary:    res.Summary,
		Merges:     res.Assignment.Merges,
		Projection: res.Projection,
		Elbow:      elbow,
	}
	if res.SilhouetteOK {
		s := res.Silhouette
		p.Silhouette = &s
	}
	if res.Assignment.Algorithm == cluster.NameKMeans {
		in := res.Assignment.Inertia
		p.Inertia = &in
	}
	return p
}

// JSON renders the payload as indented JSON.
func (p *Payload) JSON() ([]byte, error) {
	return utils.PrettyJSON(p)
}
