package chart

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"strategy-alerts/internal/filter"
	"strategy-alerts/internal/payload"
)

// Mode selects how matched records are reduced into series.
type Mode string

const (
	ModeRaw        Mode = "raw"
	ModeAggregated Mode = "aggregated"
	ModeAuto       Mode = "auto"
	ModePnL        Mode = "pnl"
)

// Measure is the per-day value of aggregated series.
type Measure string

const (
	MeasureCount    Measure = "count"
	MeasureQuantity Measure = "quantity"
)

// DefaultAggregateAfter is the span above which ModeAuto aggregates.
const DefaultAggregateAfter = 31 * 24 * time.Hour

// PnLOptions parameterise the single-position profit model.
type PnLOptions struct {
	Multiplier  decimal.Decimal
	Delta       decimal.Decimal
	FeePerTrade decimal.Decimal
	FeePerUnit  decimal.Decimal
	Flip        bool
}

// DefaultPnLOptions applies no scaling and no fees.
func DefaultPnLOptions() PnLOptions {
	return PnLOptions{Multiplier: decimal.NewFromInt(1), Delta: decimal.NewFromInt(1)}
}

// BuildOptions configure Build.
type BuildOptions struct {
	Mode           Mode
	Measure        Measure
	Strategy       string
	Location       *time.Location
	AggregateAfter time.Duration
	PnL            PnLOptions
}

func (o BuildOptions) zone() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o BuildOptions) aggregateAfter() time.Duration {
	if o.AggregateAfter <= 0 {
		return DefaultAggregateAfter
	}
	return o.AggregateAfter
}

// ParseMode accepts the mode names case-insensitively; blank is ModeRaw.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeAggregated, "aggregate", "daily":
		return ModeAggregated, nil
	case ModeAuto:
		return ModeAuto, nil
	case ModePnL, "profit":
		return ModePnL, nil
	default:
		return "", fmt.Errorf("%w: unknown chart mode %q", filter.ErrInvalidFilter, s)
	}
}

// ParseMeasure accepts count and quantity; blank is MeasureCount.
func ParseMeasure(s string) (Measure, error) {
	switch Measure(strings.ToLower(strings.TrimSpace(s))) {
	case "", MeasureCount:
		return MeasureCount, nil
	case MeasureQuantity:
		return MeasureQuantity, nil
	default:
		return "", fmt.Errorf("%w: unknown measure %q", filter.ErrInvalidFilter, s)
	}
}

type wireOptions struct {
	Mode        string           `json:"mode"`
	Measure     string           `json:"measure"`
	Multiplier  *decimal.Decimal `json:"multiplier"`
	Delta       *decimal.Decimal `json:"delta"`
	FeePerTrade *decimal.Decimal `json:"fee_per_trade"`
	FeePerUnit  *decimal.Decimal `json:"fee_per_unit"`
	Flip        bool             `json:"flip"`
}

// DecodeOptions reads the chart options carried alongside a filter
// document. base supplies the values the document leaves out.
func DecodeOptions(raw []byte, base BuildOptions) (BuildOptions, error) {
	doc, err := payload.Canonical(raw)
	if err != nil {
		return BuildOptions{}, fmt.Errorf("%w: %v", filter.ErrInvalidFilter, err)
	}

	var wire wireOptions
	if err := json.Unmarshal(doc, &wire); err != nil {
		return BuildOptions{}, fmt.Errorf("%w: chart options: %v", filter.ErrInvalidFilter, err)
	}

	opts := base
	if strings.TrimSpace(wire.Mode) != "" {
		if opts.Mode, err = ParseMode(wire.Mode); err != nil {
			return BuildOptions{}, err
		}
	}
	if strings.TrimSpace(wire.Measure) != "" {
		if opts.Measure, err = ParseMeasure(wire.Measure); err != nil {
			return BuildOptions{}, err
		}
	}
	if wire.Multiplier != nil {
		opts.PnL.Multiplier = *wire.Multiplier
	}
	if wire.Delta != nil {
		opts.PnL.Delta = *wire.Delta
	}
	if wire.FeePerTrade != nil {
		opts.PnL.FeePerTrade = *wire.FeePerTrade
	}
	if wire.FeePerUnit != nil {
		opts.PnL.FeePerUnit = *wire.FeePerUnit
	}
	if wire.Flip {
		opts.PnL.Flip = true
	}
	return opts, nil
}
