// Package keys issues webhook secrets and resolves them to strategies.
package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"strategy-alerts/internal/storage"
)

// ErrUnknownSecret is returned when no strategy is bound to a secret.
var ErrUnknownSecret = errors.New("keys: unknown secret")

// secretBytes gives a 43 character URL-safe secret.
const secretBytes = 32

// Generate returns a fresh URL-safe random secret.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Resolver binds and resolves secrets against a key store.
type Resolver struct {
	store    storage.KeyStore
	generate func() (string, error)
}

// NewResolver wraps store.
func NewResolver(store storage.KeyStore) *Resolver {
	return &Resolver{store: store, generate: Generate}
}

// Bind creates a new secret for name.
func (r *Resolver) Bind(ctx context.Context, name, description string) (storage.StrategyKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.StrategyKey{}, fmt.Errorf("bind key: strategy name is required")
	}

	secret, err := r.generate()
	if err != nil {
		return storage.StrategyKey{}, err
	}

	key, err := r.store.CreateKey(ctx, storage.StrategyKey{
		ID:           uuid.NewString(),
		SecretKey:    secret,
		StrategyName: name,
		Description:  strings.TrimSpace(description),
	})
	if err != nil {
		return storage.StrategyKey{}, err
	}
	return key, nil
}

// Resolve returns the strategy name bound to secret.
func (r *Resolver) Resolve(ctx context.Context, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrUnknownSecret
	}
	key, err := r.store.FindBySecret(ctx, secret)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrUnknownSecret
	}
	if err != nil {
		return "", fmt.Errorf("resolve secret: %w", err)
	}
	return key.StrategyName, nil
}

// List returns every bound key.
func (r *Resolver) List(ctx context.Context) ([]storage.StrategyKey, error) {
	return r.store.ListKeys(ctx)
}
