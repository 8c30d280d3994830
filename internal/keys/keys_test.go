package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"

	"strategy-alerts/internal/storage"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		secret, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(secret) != 43 {
			t.Fatalf("secret length = %d", len(secret))
		}
		raw, err := base64.RawURLEncoding.DecodeString(secret)
		if err != nil || len(raw) != secretBytes {
			t.Fatalf("secret %q is not url-safe base64 of %d bytes", secret, secretBytes)
		}
		if seen[secret] {
			t.Fatalf("duplicate secret %q", secret)
		}
		seen[secret] = true
	}
}

func TestBindAndResolve(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(storage.NewMemoryStore())

	key, err := resolver.Bind(ctx, "  S1 ", "desk one")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if key.StrategyName != "S1" || key.SecretKey == "" {
		t.Fatalf("key = %+v", key)
	}
	if _, err := uuid.Parse(key.ID); err != nil {
		t.Fatalf("key id %q is not a uuid: %v", key.ID, err)
	}

	name, err := resolver.Resolve(ctx, key.SecretKey)
	if err != nil || name != "S1" {
		t.Fatalf("Resolve = %q, %v", name, err)
	}

	for _, secret := range []string{"", "   ", "missing"} {
		if _, err := resolver.Resolve(ctx, secret); !errors.Is(err, ErrUnknownSecret) {
			t.Fatalf("Resolve(%q) err = %v", secret, err)
		}
	}

	list, err := resolver.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestBindRequiresName(t *testing.T) {
	if _, err := NewResolver(storage.NewMemoryStore()).Bind(context.Background(), " ", ""); err == nil {
		t.Fatal("empty name should fail")
	}
}

func TestBindPropagatesGeneratorError(t *testing.T) {
	resolver := NewResolver(storage.NewMemoryStore())
	boom := errors.New("entropy exhausted")
	resolver.generate = func() (string, error) { return "", boom }

	if _, err := resolver.Bind(context.Background(), "S1", ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
