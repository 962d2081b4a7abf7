package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/clusterloom-cli/internal/cluster"
)

// DefaultAssetsHost serves the echarts javascript.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// DashboardOptions controls Dashboard rendering.
type DashboardOptions struct {
	Title      string
	AssetsHost string
	// PairLimit caps the feature-pair scatter charts. 0 means 3, negative
	// disables them.
	PairLimit int
}

func (o DashboardOptions) withDefaults(res *cluster.Result) DashboardOptions {
	if o.AssetsHost == "" {
		o.AssetsHost = DefaultAssetsHost
	}
	if o.Title == "" {
		o.Title = "Clustering"
		if res.Dataset != "" {
			o.Title = "Clustering: " + res.Dataset
		}
	}
	if o.PairLimit == 0 {
		o.PairLimit = 3
	}
	return o
}

// Dashboard renders an HTML page with the projection, cluster sizes,
// optional elbow curve and feature-pair scatters.
func Dashboard(w io.Writer, res *cluster.Result, elbow []cluster.ElbowPoint, o DashboardOptions) error {
	o = o.withDefaults(res)
	page := components.NewPage()
	page.SetAssetsHost(o.AssetsHost)
	page.PageTitle = o.Title

	page.AddCharts(projectionChart(res, o))
	page.AddCharts(sizeChart(res, o))
	if len(elbow) > 0 {
		page.AddCharts(elbowChart(elbow, o))
	}
	for _, c := range pairCharts(res, o) {
		page.AddCharts(c)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func initOpts(o DashboardOptions, height string) opts.Initialization {
	return opts.Initialization{PageTitle: o.Title, Width: "900px", Height: height, AssetsHost: o.AssetsHost}
}

// groupPoints splits (xs[i], ys[i]) by label, noise last.
func groupPoints(labels []int, xs, ys []float64) ([]int, map[int][]opts.ScatterData) {
	groups := map[int][]opts.ScatterData{}
	var order []int
	noise := false
	for i, l := range labels {
		if _, ok := groups[l]; !ok {
			if l == cluster.Noise {
				noise = true
			} else {
				order = append(order, l)
			}
		}
		groups[l] = append(groups[l], opts.ScatterData{Value: []interface{}{xs[i], ys[i]}})
	}
	sort.Ints(order)
	if noise {
		order = append(order, cluster.Noise)
	}
	return order, groups
}

func scatterSeries(sc *charts.Scatter, labels []int, xs, ys []float64, nClusters int) {
	palette := Palette(nClusters)
	order, groups := groupPoints(labels, xs, ys)
	for _, l := range order {
		sc.AddSeries(LabelName(l), groups[l],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(LabelColor(l, palette))}),
		)
	}
}

func projectionChart(res *cluster.Result, o DashboardOptions) *charts.Scatter {
	p := res.Projection
	sub := fmt.Sprintf("%s, %d clusters", FormatParams(res.Algorithm.Params()), res.Clusters)
	if res.SilhouetteOK {
		sub += fmt.Sprintf(", silhouette %.3f", res.Silhouette)
	}
	xName, yName := "PC1", "PC2"
	if len(p.Explained) > 0 {
		xName = fmt.Sprintf("PC1 (%.0f%%)", p.Explained[0]*100)
	}
	if len(p.Explained) > 1 {
		yName = fmt.Sprintf("PC2 (%.0f%%)", p.Explained[1]*100)
	}
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(o, "600px")),
		charts.WithTitleOpts(opts.Title{Title: "Cluster projection", Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 30}),
	)
	scatterSeries(sc, res.Assignment.Labels, p.X, p.Y, res.Clusters)
	return sc
}

func sizeChart(res *cluster.Result, o DashboardOptions) *charts.Bar {
	x := make([]string, 0, len(res.Sizes))
	y := make([]opts.BarData, 0, len(res.Sizes))
	for _, s := range res.Sizes {
		x = append(x, LabelName(s.Label))
		y = append(y, opts.BarData{Value: s.Size})
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(o, "400px")),
		charts.WithTitleOpts(opts.Title{Title: "Cluster sizes", Subtitle: fmt.Sprintf("%d rows", len(res.Assignment.Labels))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("rows", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func elbowChart(points []cluster.ElbowPoint, o DashboardOptions) *charts.Line {
	x := make([]string, len(points))
	y := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = strconv.Itoa(p.K)
		y[i] = opts.LineData{Value: p.Inertia}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(o, "400px")),
		charts.WithTitleOpts(opts.Title{Title: "Elbow", Subtitle: "k-means inertia by number of clusters"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Inertia", NameLocation: "middle", NameGap: 45}),
	)
	line.SetXAxis(x).AddSeries("inertia", y)
	return line
}

// pairCharts plots consecutive feature pairs in original units.
func pairCharts(res *cluster.Result, o DashboardOptions) []*charts.Scatter {
	cols := res.Features.Columns
	if o.PairLimit < 0 || len(cols) < 2 {
		return nil
	}
	var out []*charts.Scatter
	for j := 0; j+1 < len(cols) && len(out) < o.PairLimit; j++ {
		xs := res.Features.Column(j)
		ys := res.Features.Column(j + 1)
		sc := charts.NewScatter()
		sc.SetGlobalOptions(
			charts.WithInitializationOpts(initOpts(o, "500px")),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s vs %s", cols[j+1], cols[j])}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
			charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: cols[j], NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: cols[j+1], NameLocation: "middle", NameGap: 30}),
		)
		scatterSeries(sc, res.Assignment.Labels, xs, ys, res.Clusters)
		out = append(out, sc)
	}
	return out
}
