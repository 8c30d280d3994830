package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db)
	store.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestSQLStoreInsertAlertArgs(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))

	mock.ExpectExec("INSERT INTO alerts").
		WithArgs("S1", "2024-01-01T14:00:00.000000000Z", "ES1!", "buy", "2", "100.5", "2024-02-01T00:00:00.000000000Z").
		WillReturnResult(sqlmock.NewResult(7, 1))

	rec, err := store.InsertAlert(context.Background(), sampleRecordAt("S1", ts))
	if err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if rec.ID != 7 || rec.Timestamp.Location() != time.UTC {
		t.Fatalf("record = %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func sampleRecordAt(strategy string, ts time.Time) alert.Record {
	rec := sampleRecord(strategy, "ES1!", "buy", ts)
	rec.Quantity = decimal.NewFromInt(2)
	rec.Price = decimal.RequireFromString("100.5")
	return rec
}

func TestSQLStoreListByStrategyScan(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "strategy_name", "ts", "contract", "trade_type", "quantity", "price", "created_at"}).
		AddRow(int64(1), "S1", "2024-01-01T09:00:00.000000000Z", "ES1!", "buy", "1", "100", "2024-01-01T09:00:01.000000000Z").
		AddRow(int64(2), "S1", "2024-01-01T10:00:00.000000000Z", "ES1!", "exit", "1", "101.25", "2024-01-01T10:00:01.000000000Z")
	mock.ExpectQuery(regexp.QuoteMeta("FROM alerts WHERE strategy_name = ? ORDER BY id")).
		WithArgs("S1").
		WillReturnRows(rows)

	records, err := store.ListAlertsByStrategy(context.Background(), "S1")
	if err != nil {
		t.Fatalf("ListAlertsByStrategy failed: %v", err)
	}
	if len(records) != 2 || records[1].TradeType != "exit" || !records[1].Price.Equal(decimal.RequireFromString("101.25")) {
		t.Fatalf("records = %+v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestSQLStoreQueryErrorIsWrapped(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery("SELECT .* FROM alerts").WithArgs("S1").WillReturnError(boom)

	_, err := store.ListAlertsByStrategy(context.Background(), "S1")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestSQLStoreBadDecimalFailsScan(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "strategy_name", "ts", "contract", "trade_type", "quantity", "price", "created_at"}).
		AddRow(int64(1), "S1", "2024-01-01T09:00:00Z", "ES1!", "buy", "one", "100", "2024-01-01T09:00:00Z")
	mock.ExpectQuery("SELECT .* FROM alerts WHERE id").WithArgs(int64(1)).WillReturnRows(rows)

	if _, err := store.GetAlert(context.Background(), 1); err == nil {
		t.Fatal("invalid quantity should fail")
	}
}

func TestSQLStoreDeleteMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM alerts WHERE id = ?")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteAlert(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestSQLStoreListAlertsDefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("ORDER BY id DESC").
		WithArgs("", "", noLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "strategy_name", "ts", "contract", "trade_type", "quantity", "price", "created_at"}))

	records, err := store.ListAlerts(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("records = %#v", records)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}
