package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedPayload marks an ingest body that is missing required fields
// or carries values that cannot be decoded.
var ErrMalformedPayload = errors.New("malformed alert payload")

// PayloadError describes the offending field of a rejected ingest body.
type PayloadError struct {
	Field  string
	Reason string
}

func (e *PayloadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedPayload, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrMalformedPayload, e.Field, e.Reason)
}

func (e *PayloadError) Unwrap() error { return ErrMalformedPayload }

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Payload is the decoded webhook event body. Timestamp is nil when the
// sender did not supply one.
type Payload struct {
	Contract  string
	TradeType string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Timestamp *time.Time
}

type rawPayload struct {
	Contract  string           `json:"contract"`
	Symbol    string           `json:"symbol"`
	TradeType string           `json:"trade_type"`
	Quantity  *decimal.Decimal `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Timestamp json.RawMessage  `json:"timestamp"`
}

// DecodePayload parses and validates an ingest body. Quantity and price may
// be JSON numbers or numeric strings; trade_type is lower-cased.
func DecodePayload(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Payload{}, &PayloadError{Reason: "empty body"}
	}

	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return Payload{}, &PayloadError{Reason: "invalid json: " + err.Error()}
	}

	contract := strings.TrimSpace(raw.Contract)
	if contract == "" {
		contract = strings.TrimSpace(raw.Symbol)
	}
	if contract == "" {
		return Payload{}, &PayloadError{Field: "contract", Reason: "is required"}
	}

	tradeType := strings.ToLower(strings.TrimSpace(raw.TradeType))
	if tradeType == "" {
		return Payload{}, &PayloadError{Field: "trade_type", Reason: "is required"}
	}

	if raw.Quantity == nil {
		return Payload{}, &PayloadError{Field: "quantity", Reason: "is required"}
	}
	if !raw.Quantity.IsPositive() {
		return Payload{}, &PayloadError{Field: "quantity", Reason: "must be greater than zero"}
	}

	if raw.Price == nil {
		return Payload{}, &PayloadError{Field: "price", Reason: "is required"}
	}
	if !raw.Price.IsPositive() {
		return Payload{}, &PayloadError{Field: "price", Reason: "must be greater than zero"}
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Contract:  contract,
		TradeType: tradeType,
		Quantity:  *raw.Quantity,
		Price:     *raw.Price,
		Timestamp: ts,
	}, nil
}

// Record builds the stored form of the payload for a strategy. now is used
// when the payload carries no timestamp.
func (p Payload) Record(strategy string, now time.Time) Record {
	ts := now
	if p.Timestamp != nil {
		ts = *p.Timestamp
	}
	return Record{
		StrategyName: strategy,
		Timestamp:    ts.UTC(),
		Contract:     p.Contract,
		TradeType:    p.TradeType,
		Quantity:     p.Quantity,
		Price:        p.Price,
	}
}

var (
	// Numbers at or above this magnitude are read as epoch milliseconds.
	epochMillisThreshold = decimal.NewFromInt(100_000_000_000)
	// 9999-12-31T23:59:59Z
	maxEpochSeconds = decimal.NewFromInt(253402300799)
)

// parseEpoch reads a JSON number as unix seconds, or milliseconds when the
// value is too large to be seconds.
func parseEpoch(raw json.RawMessage) (*time.Time, error) {
	secs, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil, &PayloadError{Field: "timestamp", Reason: "must be a string or unix seconds"}
	}
	if secs.Abs().GreaterThanOrEqual(epochMillisThreshold) {
		secs = secs.Shift(-3)
	}
	if secs.IsNegative() || secs.GreaterThan(maxEpochSeconds) {
		return nil, &PayloadError{Field: "timestamp", Reason: fmt.Sprintf("epoch %s out of range", string(raw))}
	}
	whole := secs.IntPart()
	nsec := secs.Sub(decimal.NewFromInt(whole)).Shift(9).IntPart()
	ts := time.Unix(whole, nsec).UTC()
	return &ts, nil
}

func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return parseEpoch(raw)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, &PayloadError{Field: "timestamp", Reason: fmt.Sprintf("unrecognised format %q", s)}
}
