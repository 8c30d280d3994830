package chart

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
	"strategy-alerts/internal/filter"
)

func rec(id int64, strategy, ts, contract, tradeType, qty, price string) alert.Record {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return alert.Record{
		ID:           id,
		StrategyName: strategy,
		Timestamp:    t,
		Contract:     contract,
		TradeType:    tradeType,
		Quantity:     decimal.RequireFromString(qty),
		Price:        decimal.RequireFromString(price),
	}
}

func mustSpec(t *testing.T, in filter.Input) filter.Spec {
	t.Helper()
	spec, err := filter.Parse(in)
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	return spec
}

func ids(records []alert.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectNameOnlyReturnsPartitionSorted(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-03 10:00", "ES", "buy", "1", "100"),
		rec(2, "S2", "2024-01-01 10:00", "ES", "buy", "1", "100"),
		rec(3, "S1", "2024-01-01 10:00", "ES", "sell", "1", "101"),
		rec(4, "S1", "2024-01-02 10:00", "NQ", "exit", "1", "102"),
	}

	got, err := Select(records, mustSpec(t, filter.Input{Name: "S1"}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if want := []int64{3, 4, 1}; !equalIDs(ids(got), want) {
		t.Fatalf("ids = %v, want %v", ids(got), want)
	}
}

func TestSelectWeekdayAndWeekOfMonth(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-08 09:00", "ES", "buy", "1", "100"),
	}

	monday, err := Select(records, mustSpec(t, filter.Input{Name: "S1", Days: []string{"Mon"}}))
	if err != nil {
		t.Fatalf("Select days: %v", err)
	}
	if !equalIDs(ids(monday), []int64{1, 2}) {
		t.Fatalf("days=[Mon] ids = %v", ids(monday))
	}

	firstWeek, err := Select(records, mustSpec(t, filter.Input{Name: "S1", Weeks: []int{1}}))
	if err != nil {
		t.Fatalf("Select weeks: %v", err)
	}
	if !equalIDs(ids(firstWeek), []int64{1}) {
		t.Fatalf("weeks=[1] ids = %v", ids(firstWeek))
	}
}

func TestSelectWrappingWindow(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 23:50", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 14:00", "ES", "buy", "1", "100"),
		rec(3, "S1", "2024-01-02 01:30", "ES", "exit", "1", "100"),
	}
	spec := mustSpec(t, filter.Input{Name: "S1", StartTime: "22:00", EndTime: "02:00"})

	got, err := Select(records, spec)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !equalIDs(ids(got), []int64{1, 3}) {
		t.Fatalf("ids = %v, want [1 3]", ids(got))
	}
}

func TestSelectKeepsInputOrderOnTies(t *testing.T) {
	records := []alert.Record{
		rec(5, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 09:00", "ES", "exit", "1", "101"),
		rec(9, "S1", "2024-01-01 08:00", "ES", "sell", "1", "99"),
	}
	got, err := Select(records, mustSpec(t, filter.Input{Name: "S1"}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !equalIDs(ids(got), []int64{9, 5, 2}) {
		t.Fatalf("ids = %v, want [9 5 2]", ids(got))
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-09 09:00", "ES", "buy", "1", "100"),
		rec(3, "S1", "2024-01-13 09:00", "ES", "buy", "1", "100"),
	}
	spec := mustSpec(t, filter.Input{Name: "S1", Days: []string{"tue", "sat"}, Weeks: []int{2}})

	once, err := Select(records, spec)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	twice, err := Select(once, spec)
	if err != nil {
		t.Fatalf("Select again: %v", err)
	}
	if !equalIDs(ids(once), ids(twice)) || !equalIDs(ids(once), []int64{2, 3}) {
		t.Fatalf("once = %v, twice = %v", ids(once), ids(twice))
	}
}

func TestSelectRejectsInvalidSpec(t *testing.T) {
	_, err := Select(nil, filter.Spec{})
	if !errors.Is(err, filter.ErrInvalidFilter) {
		t.Fatalf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestEmptySelectionGivesEmptyFigure(t *testing.T) {
	matched, err := Select(nil, mustSpec(t, filter.Input{Name: "S9"}))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	fig := Assemble(Build(matched, BuildOptions{}), AssembleOptions{})
	if !fig.IsEmpty() {
		t.Fatal("figure should be empty")
	}

	raw, err := json.Marshal(fig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"data":[]`) {
		t.Fatalf("figure json = %s", raw)
	}
}

func TestBuildRawLabels(t *testing.T) {
	single := Build([]alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 10:00", "ES", "buy", "1", "101.5"),
	}, BuildOptions{Mode: ModeRaw})
	if len(single) != 1 || single[0].Label != "S1" {
		t.Fatalf("single series = %+v", single)
	}
	if single[0].Points[1].Value != 101.5 || single[0].Unit != UnitPrice {
		t.Fatalf("unexpected points %+v", single[0])
	}

	mixed := Build([]alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 10:00", "NQ", "sell", "1", "200"),
		rec(3, "S1", "2024-01-01 11:00", "ES", "buy", "1", "102"),
	}, BuildOptions{Mode: ModeRaw})
	if len(mixed) != 2 {
		t.Fatalf("want 2 series, got %d", len(mixed))
	}
	if mixed[0].Label != "ES buy" || mixed[1].Label != "NQ sell" {
		t.Fatalf("labels = %q, %q", mixed[0].Label, mixed[1].Label)
	}
	if len(mixed[0].Points) != 2 {
		t.Fatalf("ES buy points = %d", len(mixed[0].Points))
	}
}

func TestBuildAggregatedSkipsEmptyDays(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "2", "100"),
		rec(2, "S1", "2024-01-01 15:00", "ES", "exit", "3", "101"),
		rec(3, "S1", "2024-01-04 09:00", "ES", "buy", "1", "100"),
	}

	count := Build(records, BuildOptions{Mode: ModeAggregated})
	if len(count) != 1 || !count[0].Daily {
		t.Fatalf("count series = %+v", count)
	}
	pts := count[0].Points
	if len(pts) != 2 {
		t.Fatalf("want 2 days without zero fill, got %d", len(pts))
	}
	if pts[0].Value != 2 || pts[1].Value != 1 {
		t.Fatalf("counts = %v, %v", pts[0].Value, pts[1].Value)
	}
	if !pts[0].Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("point time = %s", pts[0].Time)
	}
	if count[0].Label != "S1 daily count" {
		t.Fatalf("label = %q", count[0].Label)
	}

	qty := Build(records, BuildOptions{Mode: ModeAggregated, Measure: MeasureQuantity})
	if qty[0].Points[0].Value != 5 || qty[0].Unit != UnitQuantity {
		t.Fatalf("quantity series = %+v", qty[0])
	}
}

func TestBuildAggregatedUsesLocalDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	records := []alert.Record{
		rec(1, "S1", "2024-01-02 03:00", "ES", "buy", "1", "100"),
	}
	series := Build(records, BuildOptions{Mode: ModeAggregated, Location: loc})
	got := series[0].Points[0].Time
	if got.Day() != 1 || got.Location() != loc {
		t.Fatalf("point should fall on Jan 1 local, got %s", got)
	}
}

func TestResolveModeAuto(t *testing.T) {
	short := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-10 09:00", "ES", "buy", "1", "100"),
	}
	long := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-03-01 09:00", "ES", "buy", "1", "100"),
	}
	opts := BuildOptions{Mode: ModeAuto}

	if got := ResolveMode(short, opts); got != ModeRaw {
		t.Fatalf("short span mode = %s", got)
	}
	if got := ResolveMode(long, opts); got != ModeAggregated {
		t.Fatalf("long span mode = %s", got)
	}
	opts.AggregateAfter = 24 * time.Hour
	if got := ResolveMode(short, opts); got != ModeAggregated {
		t.Fatalf("custom threshold mode = %s", got)
	}
}

func TestClosedTradesSinglePosition(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 08:00", "ES", "exit", "1", "90"),
		rec(2, "S1", "2024-01-01 09:00", "ES", "buy", "2", "100"),
		rec(3, "S1", "2024-01-01 09:30", "ES", "buy", "5", "105"),
		rec(4, "S1", "2024-01-01 10:00", "ES", "exit", "2", "110"),
		rec(5, "S1", "2024-01-01 11:00", "ES", "sell", "1", "120"),
		rec(6, "S1", "2024-01-01 12:00", "ES", "exit", "1", "115"),
		rec(7, "S1", "2024-01-01 13:00", "ES", "buy", "1", "100"),
	}
	opts := DefaultPnLOptions()
	opts.FeePerTrade = decimal.NewFromInt(1)

	trades := ClosedTrades(records, opts)
	if len(trades) != 2 {
		t.Fatalf("want 2 trades, got %d", len(trades))
	}
	// long 2 @100 -> 110: 20 - 1
	if !trades[0].Profit.Equal(decimal.NewFromInt(19)) || trades[0].Side != 1 {
		t.Fatalf("first trade = %+v", trades[0])
	}
	// short 1 @120 -> 115: 5 - 1
	if !trades[1].Profit.Equal(decimal.NewFromInt(4)) || trades[1].Side != -1 {
		t.Fatalf("second trade = %+v", trades[1])
	}
}

func TestClosedTradesFlipAndScaling(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 10:00", "ES", "exit", "1", "110"),
	}
	opts := PnLOptions{
		Multiplier: decimal.NewFromInt(50),
		Delta:      decimal.RequireFromString("0.5"),
		FeePerUnit: decimal.NewFromInt(2),
		Flip:       true,
	}

	trades := ClosedTrades(records, opts)
	if len(trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(trades))
	}
	// flipped to short: (110-100)*-1*1*50 = -500, minus fee 2, times 0.5
	if want := decimal.NewFromInt(-251); !trades[0].Profit.Equal(want) {
		t.Fatalf("profit = %s, want %s", trades[0].Profit, want)
	}
	if records[0].TradeType != "buy" {
		t.Fatal("FlipSides must not modify its input")
	}
}

func TestBuildPnLCumulative(t *testing.T) {
	records := []alert.Record{
		rec(1, "S1", "2024-01-01 09:00", "ES", "buy", "1", "100"),
		rec(2, "S1", "2024-01-01 10:00", "ES", "exit", "1", "103"),
		rec(3, "S1", "2024-01-02 09:00", "ES", "buy", "1", "100"),
		rec(4, "S1", "2024-01-02 10:00", "ES", "exit", "1", "98"),
	}
	series := Build(records, BuildOptions{Mode: ModePnL, PnL: DefaultPnLOptions()})
	if len(series) != 2 {
		t.Fatalf("want 2 series, got %d", len(series))
	}
	cumulative := series[1].Points
	if cumulative[0].Value != 3 || cumulative[1].Value != 1 {
		t.Fatalf("cumulative = %+v", cumulative)
	}
	if series[0].Label != "S1 trade pnl" || series[1].Label != "S1 cumulative pnl" {
		t.Fatalf("labels = %q, %q", series[0].Label, series[1].Label)
	}

	if open := Build(records[:1], BuildOptions{Mode: ModePnL}); len(open) != 0 {
		t.Fatalf("an open position should give no series, got %d", len(open))
	}
}

func TestDecodeOptions(t *testing.T) {
	base := BuildOptions{Mode: ModeAuto, PnL: DefaultPnLOptions()}
	doc := `{"name":"S1","mode":"daily","measure":"quantity","multiplier":"50","fee_per_trade":1.5,"flip":true}`

	opts, err := DecodeOptions([]byte(doc), base)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if opts.Mode != ModeAggregated || opts.Measure != MeasureQuantity {
		t.Fatalf("mode/measure = %s/%s", opts.Mode, opts.Measure)
	}
	if !opts.PnL.Multiplier.Equal(decimal.NewFromInt(50)) || !opts.PnL.FeePerTrade.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("pnl = %+v", opts.PnL)
	}
	if !opts.PnL.Delta.Equal(decimal.NewFromInt(1)) || !opts.PnL.Flip {
		t.Fatalf("delta/flip = %s/%v", opts.PnL.Delta, opts.PnL.Flip)
	}

	kept, err := DecodeOptions([]byte(`{"name":"S1"}`), base)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if kept.Mode != ModeAuto {
		t.Fatalf("base mode should be kept, got %s", kept.Mode)
	}

	if _, err := DecodeOptions([]byte(`{"name":"S1","mode":"weekly"}`), base); !errors.Is(err, filter.ErrInvalidFilter) {
		t.Fatalf("unknown mode err = %v", err)
	}
}

func TestAssembleFigure(t *testing.T) {
	series := []Series{{
		Label:  "S1",
		Unit:   UnitPrice,
		Points: []Point{{Time: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Value: 100}},
	}}
	fig := Assemble(series, AssembleOptions{Title: "S1 alerts"})

	if len(fig.Data) != 1 {
		t.Fatalf("traces = %d", len(fig.Data))
	}
	tr := fig.Data[0]
	if tr.Type != "scatter" || tr.X[0] != "2024-01-01T09:00:00Z" || tr.Y[0] != 100 {
		t.Fatalf("trace = %+v", tr)
	}
	if fig.Layout.YAxis.Title.Text != UnitPrice || fig.Layout.XAxis.Title.Text != "Time" {
		t.Fatalf("axis titles = %+v", fig.Layout)
	}
	if fig.Layout.Title == nil || fig.Layout.Title.Text != "S1 alerts" {
		t.Fatalf("title = %+v", fig.Layout.Title)
	}

	daily := Assemble([]Series{{Label: "d", Unit: UnitCount, Daily: true, Points: []Point{{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 1}}}}, AssembleOptions{})
	if daily.Data[0].X[0] != "2024-01-02" || daily.Layout.XAxis.Title.Text != "Date" {
		t.Fatalf("daily figure = %+v", daily)
	}
}

func TestNormalizeFigureAcceptsEncodedString(t *testing.T) {
	obj := `{"data":[{"type":"scatter","mode":"lines","name":"a","x":["2024-01-01"],"y":[1]}],"layout":{"xaxis":{"title":{"text":"Date"}},"yaxis":{"title":{"text":"Count"}}}}`
	encoded, _ := json.Marshal(obj)

	for _, raw := range []string{obj, string(encoded)} {
		fig, err := NormalizeFigure([]byte(raw))
		if err != nil {
			t.Fatalf("NormalizeFigure(%s): %v", raw, err)
		}
		if len(fig.Data) != 1 || fig.Data[0].Name != "a" {
			t.Fatalf("figure = %+v", fig)
		}
	}

	fig, err := NormalizeFigure([]byte(`{"layout":{}}`))
	if err != nil {
		t.Fatalf("NormalizeFigure: %v", err)
	}
	if fig.Data == nil || !fig.IsEmpty() {
		t.Fatal("missing data should normalise to an empty trace list")
	}

	if _, err := NormalizeFigure([]byte(`not json`)); err == nil {
		t.Fatal("invalid json should fail")
	}
}
