package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"strategy-alerts/internal/alert"
)

// Timestamps are stored as UTC RFC3339 text with a fixed nine-digit
// fraction so that they also sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	sqliteSchemaSQL = `CREATE TABLE IF NOT EXISTS alerts (
        id            INTEGER PRIMARY KEY AUTOINCREMENT,
        strategy_name TEXT NOT NULL,
        ts            TEXT NOT NULL,
        contract      TEXT NOT NULL,
        trade_type    TEXT NOT NULL,
        quantity      TEXT NOT NULL,
        price         TEXT NOT NULL,
        created_at    TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS alerts_strategy_id_idx ON alerts (strategy_name, id);
    CREATE TABLE IF NOT EXISTS strategy_keys (
        id            TEXT PRIMARY KEY,
        secret_key    TEXT NOT NULL UNIQUE,
        strategy_name TEXT NOT NULL,
        description   TEXT NOT NULL DEFAULT '',
        created_at    TEXT NOT NULL
    );`

	sqliteAlertColumns = `id, strategy_name, ts, contract, trade_type, quantity, price, created_at`

	sqliteInsertAlertSQL = `INSERT INTO alerts (strategy_name, ts, contract, trade_type, quantity, price, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?);`

	sqliteListByStrategySQL = `SELECT ` + sqliteAlertColumns + ` FROM alerts WHERE strategy_name = ? ORDER BY id;`

	sqliteListRecentSQL = `SELECT ` + sqliteAlertColumns + ` FROM alerts
    WHERE (? = '' OR strategy_name = ?)
    ORDER BY id DESC
    LIMIT ?;`

	sqliteGetAlertSQL = `SELECT ` + sqliteAlertColumns + ` FROM alerts WHERE id = ?;`

	sqliteDeleteAlertSQL = `DELETE FROM alerts WHERE id = ?;`

	sqliteStrategyNamesSQL = `SELECT DISTINCT strategy_name FROM alerts ORDER BY strategy_name;`

	sqliteCountByStrategySQL = `SELECT strategy_name, COUNT(*) FROM alerts GROUP BY strategy_name;`

	sqliteInsertKeySQL = `INSERT INTO strategy_keys (id, secret_key, strategy_name, description, created_at)
    VALUES (?, ?, ?, ?, ?);`

	sqliteFindKeySQL = `SELECT id, secret_key, strategy_name, description, created_at FROM strategy_keys WHERE secret_key = ?;`

	sqliteListKeysSQL = `SELECT id, secret_key, strategy_name, description, created_at FROM strategy_keys ORDER BY created_at, strategy_name;`
)

// SQLStore is the SQLite backend over database/sql.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating parent directories) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating parent directories: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection: writes serialise anyway and :memory: is per connection
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Close releases the handle.
func (s *SQLStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func (s *SQLStore) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

// EnsureSchema creates the tables when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertAlert persists a record and returns it with its ID assigned.
func (s *SQLStore) InsertAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	db, err := s.getDB()
	if err != nil {
		return alert.Record{}, err
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.CreatedAt = s.now().UTC()

	res, err := db.ExecContext(ctx, sqliteInsertAlertSQL,
		rec.StrategyName,
		rec.Timestamp.Format(sqliteTimeLayout),
		rec.Contract,
		rec.TradeType,
		rec.Quantity.String(),
		rec.Price.String(),
		rec.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return alert.Record{}, fmt.Errorf("insert alert: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return alert.Record{}, fmt.Errorf("insert alert: %w", err)
	}
	return rec, nil
}

// ListAlertsByStrategy lists every record of a strategy in insertion order.
func (s *SQLStore) ListAlertsByStrategy(ctx context.Context, name string) ([]alert.Record, error) {
	return s.queryAlerts(ctx, "list alerts by strategy", sqliteListByStrategySQL, name)
}

// ListAlerts lists the most recent records.
func (s *SQLStore) ListAlerts(ctx context.Context, f ListFilter) ([]alert.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = noLimit
	}
	return s.queryAlerts(ctx, "list alerts", sqliteListRecentSQL, f.Strategy, f.Strategy, limit)
}

func (s *SQLStore) queryAlerts(ctx context.Context, op, query string, args ...any) ([]alert.Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := make([]alert.Record, 0)
	for rows.Next() {
		rec, err := scanSQLiteAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// GetAlert loads one record.
func (s *SQLStore) GetAlert(ctx context.Context, id int64) (alert.Record, error) {
	db, err := s.getDB()
	if err != nil {
		return alert.Record{}, err
	}

	rec, err := scanSQLiteAlert(db.QueryRowContext(ctx, sqliteGetAlertSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return alert.Record{}, ErrNotFound
	}
	if err != nil {
		return alert.Record{}, fmt.Errorf("get alert: %w", err)
	}
	return rec, nil
}

// DeleteAlert removes one record.
func (s *SQLStore) DeleteAlert(ctx context.Context, id int64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, sqliteDeleteAlertSQL, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStrategyNames returns the distinct strategy names, sorted.
func (s *SQLStore) ListStrategyNames(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqliteStrategyNamesSQL)
	if err != nil {
		return nil, fmt.Errorf("list strategy names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list strategy names: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CountByStrategy counts stored records per strategy.
func (s *SQLStore) CountByStrategy(ctx context.Context) (map[string]int64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqliteCountByStrategySQL)
	if err != nil {
		return nil, fmt.Errorf("count by strategy: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			name  string
			count int64
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("count by strategy: %w", err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// CreateKey stores a new strategy key.
func (s *SQLStore) CreateKey(ctx context.Context, key StrategyKey) (StrategyKey, error) {
	db, err := s.getDB()
	if err != nil {
		return StrategyKey{}, err
	}

	key.CreatedAt = s.now().UTC()
	if _, err := db.ExecContext(ctx, sqliteInsertKeySQL,
		key.ID,
		key.SecretKey,
		key.StrategyName,
		key.Description,
		key.CreatedAt.Format(sqliteTimeLayout),
	); err != nil {
		return StrategyKey{}, fmt.Errorf("create key: %w", err)
	}
	return key, nil
}

// FindBySecret looks a key up by its secret.
func (s *SQLStore) FindBySecret(ctx context.Context, secret string) (StrategyKey, error) {
	db, err := s.getDB()
	if err != nil {
		return StrategyKey{}, err
	}

	key, err := scanSQLiteKey(db.QueryRowContext(ctx, sqliteFindKeySQL, secret))
	if errors.Is(err, sql.ErrNoRows) {
		return StrategyKey{}, ErrNotFound
	}
	if err != nil {
		return StrategyKey{}, fmt.Errorf("find key: %w", err)
	}
	return key, nil
}

// ListKeys returns every key, oldest first.
func (s *SQLStore) ListKeys(ctx context.Context) ([]StrategyKey, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sqliteListKeysSQL)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]StrategyKey, 0)
	for rows.Next() {
		key, err := scanSQLiteKey(rows)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanSQLiteAlert(row rowScanner) (alert.Record, error) {
	var (
		rec          alert.Record
		tsStr        string
		quantityStr  string
		priceStr     string
		createdAtStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.StrategyName,
		&tsStr,
		&rec.Contract,
		&rec.TradeType,
		&quantityStr,
		&priceStr,
		&createdAtStr,
	); err != nil {
		return alert.Record{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return alert.Record{}, fmt.Errorf("parse ts: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return alert.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	return finishAlert(rec, ts, createdAt, quantityStr, priceStr)
}

func scanSQLiteKey(row rowScanner) (StrategyKey, error) {
	var (
		key          StrategyKey
		createdAtStr string
	)
	if err := row.Scan(
		&key.ID,
		&key.SecretKey,
		&key.StrategyName,
		&key.Description,
		&createdAtStr,
	); err != nil {
		return StrategyKey{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return StrategyKey{}, fmt.Errorf("parse created_at: %w", err)
	}
	key.CreatedAt = createdAt.UTC()
	return key, nil
}
