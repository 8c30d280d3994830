package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"strategy-alerts/internal/alert"
)

// MemoryStore keeps everything in process memory. Used by tests and the
// memory driver.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	alerts []alert.Record
	keys   []StrategyKey
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }

func (m *MemoryStore) Close() {}

func (m *MemoryStore) InsertAlert(ctx context.Context, rec alert.Record) (alert.Record, error) {
	if err := ctx.Err(); err != nil {
		return alert.Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec.ID = m.nextID
	rec.Timestamp = rec.Timestamp.UTC()
	rec.CreatedAt = m.now().UTC()
	m.alerts = append(m.alerts, rec)
	return rec, nil
}

func (m *MemoryStore) ListAlertsByStrategy(ctx context.Context, name string) ([]alert.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]alert.Record, 0)
	for _, rec := range m.alerts {
		if rec.StrategyName == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAlerts(ctx context.Context, f ListFilter) ([]alert.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]alert.Record, 0)
	for i := len(m.alerts) - 1; i >= 0; i-- {
		rec := m.alerts[i]
		if f.Strategy != "" && rec.StrategyName != f.Strategy {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) GetAlert(ctx context.Context, id int64) (alert.Record, error) {
	if err := ctx.Err(); err != nil {
		return alert.Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.alerts {
		if rec.ID == id {
			return rec, nil
		}
	}
	return alert.Record{}, ErrNotFound
}

func (m *MemoryStore) DeleteAlert(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.alerts {
		if rec.ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListStrategyNames(ctx context.Context) ([]string, error) {
	counts, err := m.CountByStrategy(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) CountByStrategy(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, rec := range m.alerts {
		counts[rec.StrategyName]++
	}
	return counts, nil
}

func (m *MemoryStore) CreateKey(ctx context.Context, key StrategyKey) (StrategyKey, error) {
	if err := ctx.Err(); err != nil {
		return StrategyKey{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.keys {
		if existing.SecretKey == key.SecretKey {
			return StrategyKey{}, fmt.Errorf("create key: secret already bound to %q", existing.StrategyName)
		}
	}
	key.CreatedAt = m.now().UTC()
	m.keys = append(m.keys, key)
	return key, nil
}

func (m *MemoryStore) FindBySecret(ctx context.Context, secret string) (StrategyKey, error) {
	if err := ctx.Err(); err != nil {
		return StrategyKey{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.keys {
		if key.SecretKey == secret {
			return key, nil
		}
	}
	return StrategyKey{}, ErrNotFound
}

func (m *MemoryStore) ListKeys(ctx context.Context) ([]StrategyKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append(make([]StrategyKey, 0, len(m.keys)), m.keys...), nil
}
