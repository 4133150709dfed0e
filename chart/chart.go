// Package chart renders dataset charts to in-memory PNG bytes. Nothing here
// touches the display or the filesystem; callers decide what to do with the
// image.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/nexxia-ai/datagentic/dataset"
)

// ErrInvalidSpec marks chart requests with unknown types, aggregations or
// columns, and series with no drawable points.
var ErrInvalidSpec = errors.New("invalid chart spec")

type Type string

const (
	TypeBar       Type = "bar"
	TypeLine      Type = "line"
	TypeScatter   Type = "scatter"
	TypeHistogram Type = "histogram"
)

// ParseType validates a chart type name.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeBar:
		return TypeBar, nil
	case TypeLine:
		return TypeLine, nil
	case TypeScatter:
		return TypeScatter, nil
	case TypeHistogram:
		return TypeHistogram, nil
	}
	return "", fmt.Errorf("%w: unknown chart type %q (want bar, line, scatter or histogram)", ErrInvalidSpec, s)
}

// Spec describes one chart over a dataset. Bar and line charts aggregate
// YColumn grouped by XColumn; scatter plots raw numeric pairs; histogram bins
// YColumn and ignores XColumn. An empty Aggregation means mean.
type Spec struct {
	Type        Type
	XColumn     string
	YColumn     string
	Aggregation dataset.Aggregation
	Title       string
}

const defaultBins = 10

// Render validates the spec against the dataset and produces PNG bytes.
func Render(ds *dataset.Dataset, spec Spec) ([]byte, error) {
	if _, err := ParseType(string(spec.Type)); err != nil {
		return nil, err
	}
	agg := spec.Aggregation
	if agg == "" {
		agg = dataset.AggMean
	}
	if _, err := dataset.ParseAggregation(string(agg)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	switch spec.Type {
	case TypeBar, TypeLine:
		groups, err := ds.GroupAggregate(spec.XColumn, spec.YColumn, agg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		labels := make([]string, len(groups))
		values := make([]float64, len(groups))
		for i, g := range groups {
			labels[i] = g.Group
			values[i] = g.Value
		}
		title := spec.Title
		if title == "" {
			title = fmt.Sprintf("%s of %s by %s", agg, spec.YColumn, spec.XColumn)
		}
		if spec.Type == TypeBar {
			return Bar(title, spec.XColumn, spec.YColumn, labels, values)
		}
		return lineOverGroups(title, spec.XColumn, spec.YColumn, labels, values)

	case TypeScatter:
		xs, ys, err := ds.NumericPairs(spec.XColumn, spec.YColumn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		title := spec.Title
		if title == "" {
			title = fmt.Sprintf("%s vs %s", spec.YColumn, spec.XColumn)
		}
		return Scatter(title, spec.XColumn, spec.YColumn, xs, ys)

	default: // TypeHistogram
		ys, err := ds.Numeric(spec.YColumn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		title := spec.Title
		if title == "" {
			title = fmt.Sprintf("distribution of %s", spec.YColumn)
		}
		return Histogram(title, spec.YColumn, ys, defaultBins)
	}
}

// lineOverGroups draws a line across group labels. Numeric labels become a
// numeric x axis sorted ascending; anything else keeps first-appearance order
// with nominal ticks.
func lineOverGroups(title, xlabel, ylabel string, labels []string, values []float64) ([]byte, error) {
	xs := make([]float64, len(labels))
	numeric := len(labels) > 0
	for i, l := range labels {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			numeric = false
			break
		}
		xs[i] = v
	}
	if numeric {
		idx := make([]int, len(xs))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
		sx := make([]float64, len(idx))
		sy := make([]float64, len(idx))
		for i, k := range idx {
			sx[i], sy[i] = xs[k], values[k]
		}
		return Line(title, xlabel, ylabel, sx, sy)
	}

	p := newPlot(title, xlabel, ylabel)
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no points to draw", ErrInvalidSpec)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	p.NominalX(labels...)
	return encode(p)
}

// Bar draws one bar per label.
func Bar(title, xlabel, ylabel string, labels []string, values []float64) ([]byte, error) {
	if len(values) == 0 || len(labels) != len(values) {
		return nil, fmt.Errorf("%w: need matching labels and values", ErrInvalidSpec)
	}
	p := newPlot(title, xlabel, ylabel)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(24))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	return encode(p)
}

// Line draws a line through numeric x/y pairs. The input order is kept.
func Line(title, xlabel, ylabel string, xs, ys []float64) ([]byte, error) {
	pts, err := toXYs(xs, ys)
	if err != nil {
		return nil, err
	}
	p := newPlot(title, xlabel, ylabel)
	p.Add(plotter.NewGrid())
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return encode(p)
}

// Scatter draws numeric x/y pairs as points.
func Scatter(title, xlabel, ylabel string, xs, ys []float64) ([]byte, error) {
	pts, err := toXYs(xs, ys)
	if err != nil {
		return nil, err
	}
	p := newPlot(title, xlabel, ylabel)
	p.Add(plotter.NewGrid())
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = plotutil.Color(2)
	p.Add(scatter)
	return encode(p)
}

// Histogram bins values into n buckets.
func Histogram(title, xlabel string, values []float64, bins int) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values to bin", ErrInvalidSpec)
	}
	if bins <= 0 {
		bins = defaultBins
	}
	p := newPlot(title, xlabel, "frequency")
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, err
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return encode(p)
}

func toXYs(xs, ys []float64) (plotter.XYs, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: need matching x and y values", ErrInvalidSpec)
	}
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts, nil
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	return p
}

func encode(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
