package storage

import (
	"context"
	"errors"
	"time"

	"strategy-alerts/internal/alert"
)

var (
	// ErrNotConfigured indicates the storage backend was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
	// ErrNotFound is returned when a record or key does not exist.
	ErrNotFound = errors.New("storage: not found")
)

// StrategyKey binds a webhook secret to a strategy name.
type StrategyKey struct {
	ID           string    `json:"id"`
	SecretKey    string    `json:"secret_key"`
	StrategyName string    `json:"strategy_name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListFilter narrows ListAlerts. Zero values mean no restriction.
type ListFilter struct {
	Strategy string
	Limit    int
}

// AlertStore defines operations for alert persistence.
type AlertStore interface {
	InsertAlert(ctx context.Context, rec alert.Record) (alert.Record, error)
	// ListAlertsByStrategy returns every record of name in insertion order.
	ListAlertsByStrategy(ctx context.Context, name string) ([]alert.Record, error)
	// ListAlerts returns the most recent records first.
	ListAlerts(ctx context.Context, f ListFilter) ([]alert.Record, error)
	GetAlert(ctx context.Context, id int64) (alert.Record, error)
	DeleteAlert(ctx context.Context, id int64) error
	ListStrategyNames(ctx context.Context) ([]string, error)
	CountByStrategy(ctx context.Context) (map[string]int64, error)
}

// KeyStore defines operations for webhook secrets.
type KeyStore interface {
	CreateKey(ctx context.Context, key StrategyKey) (StrategyKey, error)
	FindBySecret(ctx context.Context, secret string) (StrategyKey, error)
	ListKeys(ctx context.Context) ([]StrategyKey, error)
}

// Repository is a complete backend.
type Repository interface {
	AlertStore
	KeyStore
	EnsureSchema(ctx context.Context) error
	Close()
}
