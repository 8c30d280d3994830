package chart

import (
	"strings"

	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
)

// Trade is one closed position of the single-position model.
type Trade struct {
	Entry  alert.Record
	Exit   alert.Record
	Side   int
	Profit decimal.Decimal
}

// FlipSides swaps buy and sell entries, leaving exits and other tokens
// untouched. The input is not modified.
func FlipSides(records []alert.Record) []alert.Record {
	out := make([]alert.Record, len(records))
	for i, rec := range records {
		switch strings.ToLower(rec.TradeType) {
		case alert.TradeBuy:
			rec.TradeType = alert.TradeSell
		case alert.TradeSell:
			rec.TradeType = alert.TradeBuy
		}
		out[i] = rec
	}
	return out
}

// TrimToClosed returns the records from the first entry through the last
// exit that follows it. Without an entry or a later exit the result is empty.
func TrimToClosed(records []alert.Record) []alert.Record {
	first := -1
	for i, rec := range records {
		if entrySide(rec.TradeType) != 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	last := -1
	for i := len(records) - 1; i >= first; i-- {
		if isExit(records[i].TradeType) {
			last = i
			break
		}
	}
	if last < 0 {
		return nil
	}
	return records[first : last+1]
}

// ClosedTrades walks records in order holding at most one position.
// Entries while a position is open and exits while flat are ignored.
func ClosedTrades(records []alert.Record, opts PnLOptions) []Trade {
	if opts.Flip {
		records = FlipSides(records)
	}
	records = TrimToClosed(records)

	multiplier := opts.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	delta := opts.Delta
	if delta.IsZero() {
		delta = decimal.NewFromInt(1)
	}

	trades := make([]Trade, 0)
	var open *alert.Record
	side := 0

	for i := range records {
		rec := records[i]
		if open == nil {
			if s := entrySide(rec.TradeType); s != 0 {
				open = &records[i]
				side = s
			}
			continue
		}
		if !isExit(rec.TradeType) {
			continue
		}

		qty := open.Quantity
		pnl := rec.Price.Sub(open.Price).
			Mul(decimal.NewFromInt(int64(side))).
			Mul(qty.Mul(multiplier))
		pnl = pnl.Sub(opts.FeePerTrade.Add(qty.Mul(opts.FeePerUnit)))

		trades = append(trades, Trade{Entry: *open, Exit: rec, Side: side, Profit: pnl.Mul(delta)})
		open = nil
		side = 0
	}
	return trades
}

func buildPnL(matched []alert.Record, opts BuildOptions) []Series {
	trades := ClosedTrades(matched, opts.PnL)
	if len(trades) == 0 {
		return []Series{}
	}

	perTrade := make([]Point, 0, len(trades))
	running := make([]Point, 0, len(trades))
	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.Profit)
		perTrade = append(perTrade, Point{Time: tr.Exit.Timestamp, Value: tr.Profit.InexactFloat64()})
		running = append(running, Point{Time: tr.Exit.Timestamp, Value: total.InexactFloat64()})
	}

	return []Series{
		{Label: opts.Strategy + " trade pnl", Unit: UnitPnL, Points: perTrade},
		{Label: opts.Strategy + " cumulative pnl", Unit: UnitPnL, Points: running},
	}
}

func entrySide(tradeType string) int {
	switch strings.ToLower(strings.TrimSpace(tradeType)) {
	case alert.TradeBuy:
		return 1
	case alert.TradeSell:
		return -1
	default:
		return 0
	}
}

func isExit(tradeType string) bool {
	return strings.EqualFold(strings.TrimSpace(tradeType), alert.TradeExit)
}
