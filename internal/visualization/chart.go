package visualization

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	apperrors "datacheck/internal/errors"
	"datacheck/pkg/contracts/domain"
)

// Kind names a chart type
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
	KindHeatMap Kind = "heatmap"
)

// Kinds lists every chart kind NewChart accepts
var Kinds = []Kind{KindBar, KindLine, KindScatter, KindHeatMap}

// ErrNotPlotted is returned by Save when Plot has not succeeded yet
var ErrNotPlotted = errors.New("nothing to save, call Plot first")

// ErrUnknownKind is returned by NewChart for unsupported kinds
var ErrUnknownKind = errors.New("unknown chart kind")

// Chart renders table columns to an image
type Chart interface {
	// Plot draws the chart from tbl. It may be called again to redraw.
	Plot(tbl *domain.Table, opts Options) error
	// Save writes the chart to path; the format follows the extension
	// (.png, .svg, .pdf, .jpg, .eps, .tif)
	Save(path string) error
	Kind() Kind
	Title() string
}

// Options selects the columns and styling of a chart
type Options struct {
	// X names the x-axis column. Bar charts use it for labels; line charts
	// accept numeric, datetime or label columns. Empty means the row index.
	X string `json:"x" yaml:"x"`
	// Y names the value columns. HeatMap uses all numeric columns when empty.
	Y []string `json:"y" yaml:"y"`

	XLabel string `json:"x_label" yaml:"x_label"`
	YLabel string `json:"y_label" yaml:"y_label"`

	// Horizontal lays bars along the y axis
	Horizontal bool `json:"horizontal" yaml:"horizontal"`
	// Markers draws a glyph at each line point
	Markers bool `json:"markers" yaml:"markers"`
	// Color is a CSS color name for single-series charts
	Color string `json:"color" yaml:"color"`
	// PointSize is the scatter glyph radius in points
	PointSize float64 `json:"point_size" yaml:"point_size"`
	// Correlation makes HeatMap draw the correlation matrix of the columns
	Correlation bool `json:"correlation" yaml:"correlation"`

	// Width and Height are in inches; zero means 8x6
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 8
	}
	if h <= 0 {
		h = 6
	}
	return vg.Length(w) * vg.Inch, vg.Length(h) * vg.Inch
}

// NewChart returns an empty chart of the given kind
func NewChart(kind Kind, title string) (Chart, error) {
	return NewChartWithLogger(kind, title, nil)
}

// NewChartWithLogger is NewChart with an injected logger
func NewChartWithLogger(kind Kind, title string, logger *slog.Logger) (Chart, error) {
	base := newBase(Kind(strings.ToLower(string(kind))), title, logger)
	switch base.kind {
	case KindBar:
		return &BarChart{base: base}, nil
	case KindLine:
		return &LineChart{base: base}, nil
	case KindScatter:
		return &ScatterPlot{base: base}, nil
	case KindHeatMap:
		return &HeatMap{base: base}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// base carries what every chart shares: its identity, the rendered plot
// and the canvas size
type base struct {
	kind   Kind
	title  string
	logger *slog.Logger

	plot          *plot.Plot
	width, height vg.Length
}

func newBase(kind Kind, title string, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		kind:   kind,
		title:  title,
		logger: logger.With(slog.String("component", "chart"), slog.String("kind", string(kind))),
	}
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Title() string { return b.title }

func (b *base) plotted() bool { return b.plot != nil }

// newPlot starts a plot with the chart title and axis labels
func (b *base) newPlot(opts Options, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = b.title
	p.X.Label.Text = firstNonEmpty(opts.XLabel, xLabel)
	p.Y.Label.Text = firstNonEmpty(opts.YLabel, yLabel)
	p.Legend.Top = true
	return p
}

// finish stores p as the rendered plot
func (b *base) finish(p *plot.Plot, opts Options) {
	b.plot = p
	b.width, b.height = opts.size()
}

func (b *base) Save(path string) error {
	if !b.plotted() {
		return ErrNotPlotted
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to create chart directory %s", dir), err)
		}
	}
	if err := b.plot.Save(b.width, b.height, path); err != nil {
		return apperrors.NewRenderingError(fmt.Sprintf("failed to save %s chart to %s", b.kind, path), err)
	}
	b.logger.Info("chart saved", slog.String("path", path), slog.String("title", b.title))
	return nil
}

func renderError(kind Kind, err error) error {
	return apperrors.NewRenderingError(fmt.Sprintf("failed to plot %s chart", kind), err)
}

// seriesColor returns the named color when given, otherwise the i-th color
// of the default palette
func seriesColor(name string, i int) (color.Color, error) {
	if name == "" {
		return plotutil.Color(i), nil
	}
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown color %q", name)
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
