// Package render draws comparison figures with gonum/plot: the ground-truth
// occurrence curve, fitted probability curves and the raw 0/1 observations.
// The output format follows the file extension (.png, .svg, .pdf, ...).
package render

import (
	"image/color"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/sim"
)

const (
	truthSamples = 1201
	jitterWidth  = 0.03
)

// Style is the stroke of a curve.
type Style struct {
	Color  color.Color
	Width  vg.Length
	Dashes []vg.Length
}

func (s Style) lineStyle() draw.LineStyle {
	return draw.LineStyle{Color: s.Color, Width: s.Width, Dashes: s.Dashes}
}

// TruthStyle draws the ground truth.
var TruthStyle = Style{Color: color.Black, Width: vg.Points(2.5)}

// LargeSetStyle draws the fit to the large concatenated set. It is distinct
// from every SmallSetStyle.
var LargeSetStyle = Style{
	Color:  color.RGBA{R: 200, G: 30, B: 30, A: 255},
	Width:  vg.Points(3),
	Dashes: []vg.Length{vg.Points(8), vg.Points(4)},
}

// SmallSetStyle returns a thin stroke in the i-th palette colour.
func SmallSetStyle(i int) Style {
	return Style{Color: plotutil.Color(i), Width: vg.Points(1)}
}

var observationColor = color.NRGBA{R: 60, G: 60, B: 60, A: 90}

// Figure is a single probability-vs-x plot.
type Figure struct {
	p      *plot.Plot
	jitter distuv.Uniform
}

// NewFigure creates an empty figure whose y axis spans the probability range
// plus room for jittered observations.
func NewFigure(title string) *Figure {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "P(presence)"
	p.Y.Min = -2 * jitterWidth
	p.Y.Max = 1 + 2*jitterWidth
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	return &Figure{
		p: p,
		// Fixed seed keeps re-rendered images identical.
		jitter: distuv.Uniform{Min: -jitterWidth, Max: jitterWidth, Src: rand.New(rand.NewPCG(0, 0))},
	}
}

// Plot exposes the underlying gonum plot for further customisation.
func (f *Figure) Plot() *plot.Plot {
	return f.p
}

// AddTruth draws fn over [lo, hi] and widens the x axis to that range.
func (f *Figure) AddTruth(fn sim.TruthFunc, lo, hi float64) error {
	if fn == nil {
		return errors.NewInvalidArgumentError("render.AddTruth", "fn", "must not be nil", nil)
	}
	if err := (sim.Domain{Lo: lo, Hi: hi}).Validate("render.AddTruth"); err != nil {
		return err
	}
	line := plotter.NewFunction(fn)
	line.XMin, line.XMax = lo, hi
	line.Samples = truthSamples
	line.LineStyle = TruthStyle.lineStyle()

	f.p.X.Min = math.Min(f.p.X.Min, lo)
	f.p.X.Max = math.Max(f.p.X.Max, hi)
	f.p.Add(line)
	f.p.Legend.Add("truth", line)
	return nil
}

// AddCurve draws a fitted curve. An empty label leaves it out of the legend.
func (f *Figure) AddCurve(label string, c sim.Curve, style Style) error {
	if c.Len() == 0 {
		return errors.NewValueError("render.AddCurve", "empty curve")
	}
	if len(c.X) != len(c.P) {
		return errors.NewDimensionError("render.AddCurve", len(c.X), len(c.P), 0)
	}
	line, err := plotter.NewLine(c)
	if err != nil {
		return errors.Wrapf(err, "curve %q", label)
	}
	line.LineStyle = style.lineStyle()
	f.p.Add(line)
	if label != "" {
		f.p.Legend.Add(label, line)
	}
	return nil
}

// AddObservations draws each observation at (x, y) with y jittered by up to
// ±0.03 so that coincident points stay visible. An empty set draws nothing.
func (f *Figure) AddObservations(set sim.ObservationSet) error {
	if set.Len() == 0 {
		return nil
	}
	pts := make(plotter.XYs, set.Len())
	for i := range pts {
		o := set.At(i)
		pts[i].X = o.X
		pts[i].Y = float64(o.Y) + f.jitter.Rand()
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "observations")
	}
	scatter.GlyphStyle = draw.GlyphStyle{
		Color:  observationColor,
		Radius: vg.Points(1.2),
		Shape:  draw.CircleGlyph{},
	}
	f.p.Add(scatter)
	return nil
}

// Save writes the figure to path; the extension selects the format.
func (f *Figure) Save(path string, width, height vg.Length) error {
	if err := f.p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "save figure %s", path)
	}
	return nil
}
