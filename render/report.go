package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/occusim/experiment"
	"github.com/YuminosukeSato/occusim/pkg/errors"
	"github.com/YuminosukeSato/occusim/pkg/log"
)

// Options controls figure size and format for RenderReport.
type Options struct {
	Width  vg.Length
	Height vg.Length
	Format string // file extension without the dot
	Logger log.Logger
}

// Option configures RenderReport.
type Option func(*Options)

// WithSize sets the figure size.
func WithSize(w, h vg.Length) Option {
	return func(o *Options) {
		o.Width, o.Height = w, h
	}
}

// WithFormat selects the output format by extension: png, svg, pdf, eps, jpg, tif.
func WithFormat(ext string) Option {
	return func(o *Options) {
		o.Format = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

var supportedFormats = map[string]bool{
	"png": true, "svg": true, "pdf": true, "eps": true,
	"jpg": true, "jpeg": true, "tif": true, "tiff": true,
}

// RenderReport writes one figure per model spec into dir: the truth, every
// small-set fit in its own thin colour, the large-set fit in LargeSetStyle
// and the large set's observations. It also writes an overview figure with
// the large-set fits of all models. Failed fits are skipped. It returns the
// written paths in order.
func RenderReport(report *experiment.Report, dir string, opts ...Option) ([]string, error) {
	o := Options{Width: 7 * vg.Inch, Height: 4.5 * vg.Inch, Format: "png"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("render")
	}
	if !supportedFormats[o.Format] {
		return nil, errors.NewValidationError("format", "unsupported image format", o.Format)
	}
	if report == nil || report.Truth.Len() == 0 {
		return nil, errors.NewValueError("render.RenderReport", "report has no truth curve")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	var paths []string
	for i, spec := range report.Scenario.Models {
		label := spec.DisplayName()
		fig, err := modelFigure(report, i, label)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d_%s.%s", i+1, slug(label), o.Format))
		if err := fig.Save(path, o.Width, o.Height); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		o.Logger.Debug("Figure written", log.OperationKey, log.OperationRender, log.ModelNameKey, label, "path", path)
	}

	overview, err := overviewFigure(report)
	if err != nil {
		return paths, err
	}
	path := filepath.Join(dir, "overview."+o.Format)
	if err := overview.Save(path, o.Width, o.Height); err != nil {
		return paths, err
	}
	paths = append(paths, path)

	o.Logger.Info("Figures written",
		log.OperationKey, log.OperationRender,
		log.RunIDKey, report.RunID,
		"count", len(paths),
		"dir", dir,
	)
	return paths, nil
}

func modelFigure(report *experiment.Report, i int, label string) (*Figure, error) {
	fig := NewFigure(label)
	for _, s := range report.SetsWithRole(experiment.RoleLarge) {
		if s.Observations != nil {
			if err := fig.AddObservations(*s.Observations); err != nil {
				return nil, err
			}
		}
	}
	if err := fig.AddCurve("truth", report.Truth, TruthStyle); err != nil {
		return nil, err
	}

	small := 0
	for _, f := range report.FitsFor(i) {
		if f.Failed() {
			continue
		}
		var err error
		switch f.Role {
		case experiment.RoleLarge:
			err = fig.AddCurve(fmt.Sprintf("%s (n=%d)", f.Set, f.SetSize), f.Curve, LargeSetStyle)
		default:
			legend := ""
			if small == 0 {
				legend = fmt.Sprintf("small sets (n=%d)", f.SetSize)
			}
			err = fig.AddCurve(legend, f.Curve, SmallSetStyle(small))
			small++
		}
		if err != nil {
			return nil, err
		}
	}
	return fig, nil
}

func overviewFigure(report *experiment.Report) (*Figure, error) {
	fig := NewFigure("large-set fits")
	if err := fig.AddCurve("truth", report.Truth, TruthStyle); err != nil {
		return nil, err
	}
	for i, spec := range report.Scenario.Models {
		for _, f := range report.FitsFor(i) {
			if f.Role != experiment.RoleLarge || f.Failed() {
				continue
			}
			style := Style{Color: plotutil.Color(i), Width: vg.Points(1.5), Dashes: plotutil.Dashes(i)}
			if err := fig.AddCurve(spec.DisplayName(), f.Curve, style); err != nil {
				return nil, err
			}
		}
	}
	return fig, nil
}

// slug turns a model label such as "glm(degree=4)" into "glm_degree_4".
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-':
			b.WriteRune(r)
			underscore = false
		case !underscore && b.Len() > 0:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
