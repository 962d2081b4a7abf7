package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
)

// Default PNG size.
const (
	PlotWidth  = 8 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

// ElbowPlot draws inertia against k.
func ElbowPlot(points []cluster.ElbowPoint) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("elbow plot: no points")
	}
	p := plot.New()
	p.Title.Text = "Elbow"
	p.X.Label.Text = "Number of clusters (k)"
	p.Y.Label.Text = "Inertia"

	pts := make(plotter.XYs, len(points))
	for i, e := range points {
		pts[i] = plotter.XY{X: float64(e.K), Y: e.Inertia}
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("elbow line: %w", err)
	}
	l.Color = Palette(1)[0]
	l.Width = vg.Points(1.5)
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("elbow markers: %w", err)
	}
	s.GlyphStyle.Color = l.Color
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(plotter.NewGrid(), l, s)
	return p, nil
}

// CutHeight returns a height between the merges that separate k groups, or
// 0 when k does not split the tree.
func CutHeight(merges []cluster.Merge, k int) float64 {
	upper := len(merges) - (k - 1)
	if k < 2 || upper < 0 || upper >= len(merges) {
		return 0
	}
	if upper == 0 {
		return merges[0].Distance / 2
	}
	return (merges[upper-1].Distance + merges[upper].Distance) / 2
}

// DendrogramPlot draws a merge tree. A positive cut draws a dashed line at
// that height.
func DendrogramPlot(root *cluster.DendrogramNode, cut float64) (*plot.Plot, error) {
	if root == nil {
		return nil, fmt.Errorf("dendrogram plot: empty tree")
	}
	p := plot.New()
	p.Title.Text = "Ward dendrogram"
	p.X.Label.Text = "Rows (leaf groups in order)"
	p.Y.Label.Text = "Merge distance"

	var next float64
	var segs []plotter.XYs
	var layout func(n *cluster.DendrogramNode) (x, h float64)
	layout = func(n *cluster.DendrogramNode) (float64, float64) {
		if n.Leaf() {
			x := next
			next++
			return x, 0
		}
		lx, lh := layout(n.Children[0])
		rx, rh := layout(n.Children[1])
		segs = append(segs, plotter.XYs{{X: lx, Y: lh}, {X: lx, Y: n.Height}, {X: rx, Y: n.Height}, {X: rx, Y: rh}})
		return (lx + rx) / 2, n.Height
	}
	layout(root)

	stroke := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	for _, s := range segs {
		l, err := plotter.NewLine(s)
		if err != nil {
			return nil, fmt.Errorf("dendrogram segment: %w", err)
		}
		l.Color = stroke
		l.Width = vg.Points(1)
		p.Add(l)
	}
	if cut > 0 && next > 1 {
		l, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: cut}, {X: next - 0.5, Y: cut}})
		if err != nil {
			return nil, fmt.Errorf("dendrogram cut: %w", err)
		}
		l.Color = Palette(2)[0]
		l.Width = vg.Points(1)
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("cut at %.3g", cut), l)
	}
	p.X.Min = -0.5
	p.X.Max = next - 0.5
	p.Y.Min = 0
	return p, nil
}

// WritePNG encodes p as PNG at the default size.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes p to path.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
