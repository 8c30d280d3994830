package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
)

const (
	pgSchemaSQL = `CREATE TABLE IF NOT EXISTS alerts (
        id            BIGSERIAL PRIMARY KEY,
        strategy_name TEXT        NOT NULL,
        ts            TIMESTAMPTZ NOT NULL,
        contract      TEXT        NOT NULL,
        trade_type    TEXT        NOT NULL,
        quantity      NUMERIC     NOT NULL,
        price         NUMERIC     NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS alerts_strategy_id_idx ON alerts (strategy_name, id);
    CREATE TABLE IF NOT EXISTS strategy_keys (
        id            UUID PRIMARY KEY,
        secret_key    TEXT        NOT NULL UNIQUE,
        strategy_name TEXT        NOT NULL,
        description   TEXT        NOT NULL DEFAULT '',
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	pgAlertColumns = `id, strategy_name, ts, contract, trade_type, quantity::text, price::text, created_at`

	pgInsertAlertSQL = `INSERT INTO alerts (
        strategy_name,
        ts,
        contract,
        trade_type,
        quantity,
        price
    ) VALUES (
        $1,$2,$3,$4,$5::numeric,$6::numeric
    )
    RETURNING ` + pgAlertColumns + `;`

	pgListByStrategySQL = `SELECT ` + pgAlertColumns + `
    FROM alerts
    WHERE strategy_name = $1
    ORDER BY id;`

	pgListRecentSQL = `SELECT ` + pgAlertColumns + `
    FROM alerts
    WHERE ($1 = '' OR strategy_name = $1)
    ORDER BY id DESC
    LIMIT $2;`

	pgGetAlertSQL = `SELECT ` + pgAlertColumns + ` FROM alerts WHERE id = $1;`

	pgDeleteAlertSQL = `DELETE FROM alerts WHERE id = $1;`

	pgStrategyNamesSQL = `SELECT DISTINCT strategy_name FROM alerts ORDER BY strategy_name;`

	pgCountByStrategySQL = `SELECT strategy_name, COUNT(*) FROM alerts GROUP BY strategy_name;`

	pgInsertKeySQL = `INSERT INTO strategy_keys (
        id,
        secret_key,
        strategy_name,
        description
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id::text, secret_key, strategy_name, description, created_at;`

	pgFindKeySQL = `SELECT id::text, secret_key, strategy_name, description, created_at
    FROM strategy_keys
    WHERE secret_key = $1;`

	pgListKeysSQL = `SELECT id::text, secret_key, strategy_name, description, created_at
    FROM strategy_keys
    ORDER BY created_at, strategy_name;`
)

// noLimit stands in for "all rows" in LIMIT clauses.
const noLimit = 1<<31 - 1

// Store is the PostgreSQL backend.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, pgSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertAlert persists a record and returns it with its ID assigned.
func (s *Store) InsertAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	pool, err := s.getPool()
	if err != nil {
		return alert.Record{}, err
	}

	row := pool.QueryRow(ctx, pgInsertAlertSQL,
		rec.StrategyName,
		rec.Timestamp.UTC(),
		rec.Contract,
		rec.TradeType,
		rec.Quantity.String(),
		rec.Price.String(),
	)
	stored, err := scanAlert(row)
	if err != nil {
		return alert.Record{}, fmt.Errorf("insert alert: %w", err)
	}
	return stored, nil
}

// ListAlertsByStrategy lists every record of a strategy in insertion order.
func (s *Store) ListAlertsByStrategy(ctx context.Context, name string) ([]alert.Record, error) {
	return s.queryAlerts(ctx, "list alerts by strategy", pgListByStrategySQL, name)
}

// ListAlerts lists the most recent records.
func (s *Store) ListAlerts(ctx context.Context, f ListFilter) ([]alert.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = noLimit
	}
	return s.queryAlerts(ctx, "list alerts", pgListRecentSQL, f.Strategy, limit)
}

func (s *Store) queryAlerts(ctx context.Context, op, query string, args ...any) ([]alert.Record, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("%s: %w", op, queryErr)
	}
	defer rows.Close()

	records := make([]alert.Record, 0)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: %w", op, scanErr)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}
	return records, nil
}

// GetAlert loads one record.
func (s *Store) GetAlert(ctx context.Context, id int64) (alert.Record, error) {
	pool, err := s.getPool()
	if err != nil {
		return alert.Record{}, err
	}

	rec, err := scanAlert(pool.QueryRow(ctx, pgGetAlertSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return alert.Record{}, ErrNotFound
	}
	if err != nil {
		return alert.Record{}, fmt.Errorf("get alert: %w", err)
	}
	return rec, nil
}

// DeleteAlert removes one record.
func (s *Store) DeleteAlert(ctx context.Context, id int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, pgDeleteAlertSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStrategyNames returns the distinct strategy names, sorted.
func (s *Store) ListStrategyNames(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, pgStrategyNamesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list strategy names: %w", queryErr)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list strategy names: %w", err)
	}
	return names, nil
}

// CountByStrategy counts stored records per strategy.
func (s *Store) CountByStrategy(ctx context.Context) (map[string]int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, pgCountByStrategySQL)
	if queryErr != nil {
		return nil, fmt.Errorf("count by strategy: %w", queryErr)
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
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// CreateKey stores a new strategy key.
func (s *Store) CreateKey(ctx context.Context, key StrategyKey) (StrategyKey, error) {
	pool, err := s.getPool()
	if err != nil {
		return StrategyKey{}, err
	}

	stored, err := scanKey(pool.QueryRow(ctx, pgInsertKeySQL,
		key.ID,
		key.SecretKey,
		key.StrategyName,
		key.Description,
	))
	if err != nil {
		return StrategyKey{}, fmt.Errorf("create key: %w", err)
	}
	return stored, nil
}

// FindBySecret looks a key up by its secret.
func (s *Store) FindBySecret(ctx context.Context, secret string) (StrategyKey, error) {
	pool, err := s.getPool()
	if err != nil {
		return StrategyKey{}, err
	}

	key, err := scanKey(pool.QueryRow(ctx, pgFindKeySQL, secret))
	if errors.Is(err, pgx.ErrNoRows) {
		return StrategyKey{}, ErrNotFound
	}
	if err != nil {
		return StrategyKey{}, fmt.Errorf("find key: %w", err)
	}
	return key, nil
}

// ListKeys returns every key, oldest first.
func (s *Store) ListKeys(ctx context.Context) ([]StrategyKey, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, pgListKeysSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list keys: %w", queryErr)
	}
	defer rows.Close()

	keys := make([]StrategyKey, 0)
	for rows.Next() {
		key, scanErr := scanKey(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list keys: %w", scanErr)
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return keys, nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (alert.Record, error) {
	var (
		rec         alert.Record
		quantityStr string
		priceStr    string
		ts          time.Time
		createdAt   time.Time
	)
	if err := row.Scan(
		&rec.ID,
		&rec.StrategyName,
		&ts,
		&rec.Contract,
		&rec.TradeType,
		&quantityStr,
		&priceStr,
		&createdAt,
	); err != nil {
		return alert.Record{}, err
	}
	return finishAlert(rec, ts, createdAt, quantityStr, priceStr)
}

func finishAlert(rec alert.Record, ts, createdAt time.Time, quantityStr, priceStr string) (alert.Record, error) {
	var err error
	rec.Quantity, err = decimal.NewFromString(quantityStr)
	if err != nil {
		return alert.Record{}, fmt.Errorf("parse quantity: %w", err)
	}
	rec.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return alert.Record{}, fmt.Errorf("parse price: %w", err)
	}
	rec.Timestamp = ts.UTC()
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}

func scanKey(row rowScanner) (StrategyKey, error) {
	var key StrategyKey
	if err := row.Scan(
		&key.ID,
		&key.SecretKey,
		&key.StrategyName,
		&key.Description,
		&key.CreatedAt,
	); err != nil {
		return StrategyKey{}, err
	}
	key.CreatedAt = key.CreatedAt.UTC()
	return key, nil
}
