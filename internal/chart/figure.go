package chart

import (
	"encoding/json"
	"fmt"
	"time"

	"strategy-alerts/internal/filter"
	"strategy-alerts/internal/payload"
)

// Trace is one independent x/y series of a figure.
type Trace struct {
	Type string    `json:"type"`
	Mode string    `json:"mode"`
	Name string    `json:"name"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
}

// Title is a plot or axis title.
type Title struct {
	Text string `json:"text"`
}

// Axis holds axis hints.
type Axis struct {
	Title Title  `json:"title"`
	Type  string `json:"type,omitempty"`
}

// Layout holds the minimal hints a front end needs.
type Layout struct {
	Title     *Title `json:"title,omitempty"`
	XAxis     Axis   `json:"xaxis"`
	YAxis     Axis   `json:"yaxis"`
	HoverMode string `json:"hovermode,omitempty"`
}

// Figure is the chart description handed to plotting front ends.
type Figure struct {
	Data   []Trace           `json:"data"`
	Layout *Layout           `json:"layout,omitempty"`
	Frames []json.RawMessage `json:"frames,omitempty"`
	Config map[string]any    `json:"config,omitempty"`
}

// AssembleOptions set layout titles. Empty fields fall back to defaults.
type AssembleOptions struct {
	Title  string
	XTitle string
	YTitle string
}

// Assemble converts series into a figure. It never fails; no series gives a
// figure with an empty trace list.
func Assemble(series []Series, opts AssembleOptions) Figure {
	traces := make([]Trace, 0, len(series))
	yTitle := opts.YTitle
	xTitle := opts.XTitle

	for _, s := range series {
		layout := time.RFC3339
		if s.Daily {
			layout = filter.DateLayout
		}
		tr := Trace{
			Type: "scatter",
			Mode: "lines+markers",
			Name: s.Label,
			X:    make([]string, len(s.Points)),
			Y:    make([]float64, len(s.Points)),
		}
		for i, p := range s.Points {
			tr.X[i] = p.Time.Format(layout)
			tr.Y[i] = p.Value
		}
		traces = append(traces, tr)

		if yTitle == "" {
			yTitle = s.Unit
		}
		if xTitle == "" && s.Daily {
			xTitle = "Date"
		}
	}
	if xTitle == "" {
		xTitle = "Time"
	}

	layout := &Layout{
		XAxis:     Axis{Title: Title{Text: xTitle}, Type: "date"},
		YAxis:     Axis{Title: Title{Text: yTitle}},
		HoverMode: "x unified",
	}
	if opts.Title != "" {
		layout.Title = &Title{Text: opts.Title}
	}
	return Figure{Data: traces, Layout: layout}
}

// IsEmpty reports whether the figure has nothing to plot.
func (f Figure) IsEmpty() bool {
	for _, tr := range f.Data {
		if len(tr.Y) > 0 {
			return false
		}
	}
	return true
}

// NormalizeFigure decodes a figure that may be a JSON object or a JSON
// string holding the encoded object.
func NormalizeFigure(raw []byte) (Figure, error) {
	doc, err := payload.Canonical(raw)
	if err != nil {
		return Figure{}, err
	}
	var fig Figure
	if err := json.Unmarshal(doc, &fig); err != nil {
		return Figure{}, fmt.Errorf("decode figure: %w", err)
	}
	if fig.Data == nil {
		fig.Data = []Trace{}
	}
	return fig, nil
}
