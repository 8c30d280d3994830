package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDecodePayloadSuccess(t *testing.T) {
	body := []byte(`{"contract":"NQ1!","trade_type":"BUY","quantity":2,"price":"17000.25","timestamp":"2024-01-01T09:00:00Z"}`)

	p, err := DecodePayload(body)
	if err != nil {
		t.Fatalf("decode should succeed: %v", err)
	}
	if p.Contract != "NQ1!" {
		t.Fatalf("unexpected contract %q", p.Contract)
	}
	if p.TradeType != TradeBuy {
		t.Fatalf("trade_type should be lower-cased, got %q", p.TradeType)
	}
	if !p.Price.Equal(decimal.RequireFromString("17000.25")) {
		t.Fatalf("price not preserved: %s", p.Price)
	}
	if p.Timestamp == nil || !p.Timestamp.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", p.Timestamp)
	}
}

func TestDecodePayloadSymbolAlias(t *testing.T) {
	p, err := DecodePayload([]byte(`{"symbol":"ES1!","trade_type":"exit","quantity":"1","price":5000}`))
	if err != nil {
		t.Fatalf("decode should succeed: %v", err)
	}
	if p.Contract != "ES1!" {
		t.Fatalf("symbol should populate contract, got %q", p.Contract)
	}
	if p.Timestamp != nil {
		t.Fatalf("timestamp should be absent")
	}
}

func TestDecodePayloadRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `{`,
		"no contract":    `{"trade_type":"buy","quantity":1,"price":1}`,
		"no trade type":  `{"contract":"NQ","quantity":1,"price":1}`,
		"no quantity":    `{"contract":"NQ","trade_type":"buy","price":1}`,
		"zero quantity":  `{"contract":"NQ","trade_type":"buy","quantity":0,"price":1}`,
		"no price":       `{"contract":"NQ","trade_type":"buy","quantity":1}`,
		"negative price": `{"contract":"NQ","trade_type":"buy","quantity":1,"price":-3}`,
		"bad timestamp":  `{"contract":"NQ","trade_type":"buy","quantity":1,"price":1,"timestamp":"yesterday"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePayload([]byte(body))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestPayloadRecordDefaultsTimestamp(t *testing.T) {
	p, err := DecodePayload([]byte(`{"contract":"NQ","trade_type":"sell","quantity":1,"price":10}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.FixedZone("X", 3600))

	rec := p.Record("S1", now)
	if rec.StrategyName != "S1" {
		t.Fatalf("strategy not attached: %q", rec.StrategyName)
	}
	if !rec.Timestamp.Equal(now) || rec.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp should default to now in UTC, got %v", rec.Timestamp)
	}
}

func TestPayloadUnixTimestamp(t *testing.T) {
	p, err := DecodePayload([]byte(`{"contract":"NQ","trade_type":"buy","quantity":1,"price":1,"timestamp":1704099600}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if p.Timestamp == nil || !p.Timestamp.Equal(want) {
		t.Fatalf("expected %v, got %v", want, p.Timestamp)
	}
}

func TestPayloadEpochMilliseconds(t *testing.T) {
	cases := map[string]time.Time{
		"1704099600000": time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		"1704099600500": time.Date(2024, 1, 1, 9, 0, 0, 500_000_000, time.UTC),
		"1704099600.25": time.Date(2024, 1, 1, 9, 0, 0, 250_000_000, time.UTC),
		"1704099600":    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		p, err := DecodePayload([]byte(`{"contract":"NQ","trade_type":"buy","quantity":1,"price":1,"timestamp":` + raw + `}`))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if p.Timestamp == nil || !p.Timestamp.Equal(want) {
			t.Fatalf("timestamp %s: expected %v, got %v", raw, want, p.Timestamp)
		}
	}
}

func TestPayloadEpochOutOfRange(t *testing.T) {
	for _, raw := range []string{"1e300", "-1704099600", "1e20"} {
		_, err := DecodePayload([]byte(`{"contract":"NQ","trade_type":"buy","quantity":1,"price":1,"timestamp":` + raw + `}`))
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("timestamp %s should be rejected, got %v", raw, err)
		}
		var pe *PayloadError
		if !errors.As(err, &pe) || pe.Field != "timestamp" {
			t.Fatalf("timestamp %s: expected timestamp field error, got %v", raw, err)
		}
	}
}
