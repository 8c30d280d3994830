package chart

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
	"strategy-alerts/internal/filter"
)

// Units reported on series; the figure uses them as the y-axis title.
const (
	UnitPrice    = "Price"
	UnitCount    = "Count"
	UnitQuantity = "Quantity"
	UnitPnL      = "PnL"
)

// Point is one plotted value.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a labeled sequence of points in ascending time order. Daily
// series carry one point per local calendar date.
type Series struct {
	Label  string
	Unit   string
	Daily  bool
	Points []Point
}

// Build reduces matched records into chart series. matched must already be
// ordered as Select orders it. No records yields no series.
func Build(matched []alert.Record, opts BuildOptions) []Series {
	if len(matched) == 0 {
		return []Series{}
	}
	if opts.Strategy == "" {
		opts.Strategy = matched[0].StrategyName
	}

	switch ResolveMode(matched, opts) {
	case ModeAggregated:
		return buildAggregated(matched, opts)
	case ModePnL:
		return buildPnL(matched, opts)
	default:
		return buildRaw(matched, opts)
	}
}

// ResolveMode turns ModeAuto into a concrete mode for matched.
func ResolveMode(matched []alert.Record, opts BuildOptions) Mode {
	switch opts.Mode {
	case ModeAggregated, ModePnL:
		return opts.Mode
	case ModeAuto:
		if len(matched) > 1 {
			span := matched[len(matched)-1].Timestamp.Sub(matched[0].Timestamp)
			if span > opts.aggregateAfter() {
				return ModeAggregated
			}
		}
		return ModeRaw
	default:
		return ModeRaw
	}
}

type seriesKey struct {
	contract  string
	tradeType string
}

func buildRaw(matched []alert.Record, opts BuildOptions) []Series {
	order := make([]seriesKey, 0)
	points := make(map[seriesKey][]Point)

	for _, rec := range matched {
		key := seriesKey{contract: rec.Contract, tradeType: rec.TradeType}
		if _, seen := points[key]; !seen {
			order = append(order, key)
		}
		points[key] = append(points[key], Point{Time: rec.Timestamp, Value: rec.Price.InexactFloat64()})
	}

	out := make([]Series, 0, len(order))
	for _, key := range order {
		label := key.contract + " " + key.tradeType
		if len(order) == 1 {
			label = opts.Strategy
		}
		out = append(out, Series{Label: label, Unit: UnitPrice, Points: points[key]})
	}
	return out
}

func buildAggregated(matched []alert.Record, opts BuildOptions) []Series {
	loc := opts.zone()
	measure := opts.Measure
	if measure == "" {
		measure = MeasureCount
	}

	totals := make(map[filter.Date]decimal.Decimal)
	for _, rec := range matched {
		day := filter.DateOf(rec.Timestamp.In(loc))
		inc := decimal.NewFromInt(1)
		if measure == MeasureQuantity {
			inc = rec.Quantity
		}
		totals[day] = totals[day].Add(inc)
	}

	days := make([]filter.Date, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]Point, 0, len(days))
	for _, day := range days {
		points = append(points, Point{Time: day.Midnight(loc), Value: totals[day].InexactFloat64()})
	}

	label, unit := opts.Strategy+" daily count", UnitCount
	if measure == MeasureQuantity {
		label, unit = opts.Strategy+" daily quantity", UnitQuantity
	}
	return []Series{{Label: label, Unit: unit, Daily: true, Points: points}}
}
