package cli

import (
	"github.com/spf13/cobra"

	"strategy-alerts/internal/app"
)

var exportOpts app.ExportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Chart a strategy's alerts to PNG, CSV and/or figure JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), exportOpts)
	},
}

var renderOpts app.RenderOptions

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a figure JSON document to PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Render(cmd.Context(), renderOpts)
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.Strategy, "strategy", "", "Strategy name (required)")
	f.StringVar(&exportOpts.StartDate, "start-date", "", "First local date, YYYY-MM-DD (inclusive)")
	f.StringVar(&exportOpts.EndDate, "end-date", "", "Last local date, YYYY-MM-DD (inclusive)")
	f.StringVar(&exportOpts.StartTime, "start-time", "", "Time-of-day window start, HH:MM")
	f.StringVar(&exportOpts.EndTime, "end-time", "", "Time-of-day window end, HH:MM")
	f.StringSliceVar(&exportOpts.Days, "days", nil, "Weekdays to keep, e.g. Mon,Fri")
	f.IntSliceVar(&exportOpts.Weeks, "weeks", nil, "Weeks of month to keep, 1..5")
	f.StringVar(&exportOpts.Timezone, "timezone", "", "IANA zone for dates and times (defaults to chart.timezone)")
	f.StringVar(&exportOpts.Mode, "mode", "", "raw, aggregated, auto or pnl (defaults to chart.default_mode)")
	f.StringVar(&exportOpts.Measure, "measure", "", "count or quantity for aggregated mode")
	f.StringVar(&exportOpts.PNGPath, "png", "", "Path to write PNG chart")
	f.StringVar(&exportOpts.CSVPath, "csv", "", "Path to write CSV data")
	f.StringVar(&exportOpts.JSONPath, "json", "", "Path to write the figure JSON")
	f.IntVar(&exportOpts.MaxRecords, "max-records", 0, "Keep at most this many recent records (defaults to config)")
	_ = exportCmd.MarkFlagRequired("strategy")

	r := renderCmd.Flags()
	r.StringVar(&renderOpts.FigurePath, "figure", "", "Figure JSON file (object or string-encoded)")
	r.StringVar(&renderOpts.PNGPath, "png", "", "Path to write PNG chart")
	r.IntVar(&renderOpts.Width, "width", 0, "Image width (defaults to chart.width)")
	r.IntVar(&renderOpts.Height, "height", 0, "Image height (defaults to chart.height)")
}
