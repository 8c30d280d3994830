package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"strategy-alerts/internal/chart"
	"strategy-alerts/internal/filter"
)

// Export runs a chart query and writes the figure as PNG, CSV and/or JSON.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.JSONPath == "" {
		return errors.New("at least one of --png, --csv or --json must be provided")
	}

	spec, err := filter.Parse(filter.Input{
		Name:      opts.Strategy,
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
		StartTime: opts.StartTime,
		EndTime:   opts.EndTime,
		Days:      opts.Days,
		Weeks:     opts.Weeks,
		Timezone:  opts.Timezone,
	})
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := a.newService(store, nil, nil)

	build := svc.ChartDefaults()
	if opts.Mode != "" {
		if build.Mode, err = chart.ParseMode(opts.Mode); err != nil {
			return err
		}
	}
	if opts.Measure != "" {
		if build.Measure, err = chart.ParseMeasure(opts.Measure); err != nil {
			return err
		}
	}

	matched, err := svc.Select(ctx, spec)
	if err != nil {
		return err
	}

	limit := a.Config.ResolveMaxRecords(opts.MaxRecords)
	if limit > 0 && len(matched) > limit {
		a.Logger.Warn().Int("matched", len(matched)).Int("kept", limit).Msg("export truncated to most recent records")
		matched = matched[len(matched)-limit:]
	}

	fig, mode := svc.Figure(spec, matched, build)
	if fig.IsEmpty() {
		a.Logger.Info().Str("strategy", spec.Name).Msg("no data for export filter")
		return nil
	}
	a.Logger.Info().
		Str("strategy", spec.Name).
		Str("mode", string(mode)).
		Int("records", len(matched)).
		Int("traces", len(fig.Data)).
		Msg("exporting chart")

	if opts.JSONPath != "" {
		if err := writeFigureJSON(opts.JSONPath, fig); err != nil {
			return err
		}
	}
	if opts.CSVPath != "" {
		if err := writeFigureCSV(opts.CSVPath, fig); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := a.writeFigurePNG(opts.PNGPath, fig, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// Render draws a previously exported or downloaded figure document.
func (a *App) Render(_ context.Context, opts RenderOptions) error {
	if opts.FigurePath == "" || opts.PNGPath == "" {
		return errors.New("--figure and --png must be provided")
	}

	raw, err := os.ReadFile(opts.FigurePath)
	if err != nil {
		return err
	}
	fig, err := chart.NormalizeFigure(raw)
	if err != nil {
		return err
	}

	err = a.writeFigurePNG(opts.PNGPath, fig, opts.Width, opts.Height)
	if errors.Is(err, chart.ErrEmptyFigure) {
		a.Logger.Info().Str("figure", opts.FigurePath).Msg("no data in figure")
		return nil
	}
	return err
}

func writeFigureJSON(path string, fig chart.Figure) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeFigureCSV(path string, fig chart.Figure) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return chart.WriteCSV(file, fig)
}

func (a *App) writeFigurePNG(path string, fig chart.Figure, width, height int) error {
	if fig.IsEmpty() {
		return chart.ErrEmptyFigure
	}
	if width <= 0 {
		width = a.Config.Chart.Width
	}
	if height <= 0 {
		height = a.Config.Chart.Height
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return chart.RenderPNG(file, fig, chart.RenderOptions{Width: width, Height: height})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
