package chart

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"strategy-alerts/internal/filter"
)

// ErrEmptyFigure is returned when there is nothing to draw.
var ErrEmptyFigure = errors.New("chart: figure has no data")

// RenderOptions size the PNG output.
type RenderOptions struct {
	Width  int
	Height int
}

// RenderPNG draws the figure with go-chart. X values that parse as RFC3339
// timestamps or dates are plotted on a time axis; others by index.
func RenderPNG(w io.Writer, fig Figure, opts RenderOptions) error {
	if fig.IsEmpty() {
		return ErrEmptyFigure
	}
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}

	timeAxis := true
	parsed := make([][]time.Time, len(fig.Data))
	for i, tr := range fig.Data {
		if len(tr.Y) == 0 {
			continue
		}
		times, ok := parseTimes(tr.X, len(tr.Y))
		if !ok {
			timeAxis = false
			break
		}
		parsed[i] = times
	}

	series := make([]gochart.Series, 0, len(fig.Data))
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)

	for i, tr := range fig.Data {
		if len(tr.Y) == 0 {
			continue
		}
		xs := make([]float64, len(tr.Y))
		for j, y := range tr.Y {
			xs[j] = float64(j)
			if timeAxis {
				xs[j] = gochart.TimeToFloat64(parsed[i][j])
			}
			yMin, yMax = math.Min(yMin, y), math.Max(yMax, y)
			xMin, xMax = math.Min(xMin, xs[j]), math.Max(xMax, xs[j])
		}

		if timeAxis {
			series = append(series, gochart.TimeSeries{Name: tr.Name, XValues: parsed[i], YValues: tr.Y})
			continue
		}
		series = append(series, gochart.ContinuousSeries{Name: tr.Name, XValues: xs, YValues: tr.Y})
	}

	xPad := 1.0
	if timeAxis {
		xPad = float64(time.Hour)
	}

	graph := gochart.Chart{
		Width:  opts.Width,
		Height: opts.Height,
		XAxis:  gochart.XAxis{Range: padRange(xMin, xMax, xPad)},
		YAxis: gochart.YAxis{
			Range: padRange(yMin, yMax, 1),
			ValueFormatter: func(v interface{}) string {
				return gochart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		},
		Series: series,
	}
	if timeAxis {
		graph.XAxis.ValueFormatter = gochart.TimeValueFormatter
	}
	if fig.Layout != nil {
		graph.XAxis.Name = fig.Layout.XAxis.Title.Text
		graph.YAxis.Name = fig.Layout.YAxis.Title.Text
		if fig.Layout.Title != nil {
			graph.Title = fig.Layout.Title.Text
		}
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	return graph.Render(gochart.PNG, w)
}

// WriteCSV writes one row per plotted point.
func WriteCSV(w io.Writer, fig Figure) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"series", "x", "y"}); err != nil {
		return err
	}
	for _, tr := range fig.Data {
		for i, y := range tr.Y {
			x := ""
			if i < len(tr.X) {
				x = tr.X[i]
			}
			if err := writer.Write([]string{tr.Name, x, strconv.FormatFloat(y, 'f', -1, 64)}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func parseTimes(xs []string, n int) ([]time.Time, bool) {
	if len(xs) != n {
		return nil, false
	}
	out := make([]time.Time, n)
	for i, x := range xs {
		t, err := time.Parse(time.RFC3339, x)
		if err != nil {
			t, err = time.Parse(filter.DateLayout, x)
		}
		if err != nil {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

// padRange widens a degenerate range so go-chart can scale it; otherwise
// the axis range is left to go-chart.
func padRange(lo, hi, pad float64) gochart.Range {
	if lo != hi {
		return nil
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
