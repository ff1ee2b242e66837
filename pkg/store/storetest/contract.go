// Package storetest holds the contract suite for scope store implementations.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// Store is the contract under test. It mirrors props.Store so this package
// does not import the core.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) Store

// Run exercises the read/write contract against stores built by newStore.
// Values are limited to JSON-compatible shapes (strings, bools, float64,
// maps and slices) so encoding stores can pass unchanged.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("missing key reports absent", func(t *testing.T) {
		s := newStore(t)
		value, ok, err := s.Get(context.Background(), "missing")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok || value != nil {
			t.Fatalf("expected absent value, got %v (ok=%v)", value, ok)
		}
	})

	t.Run("set then get round trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		values := map[string]any{
			"string": "auto",
			"bool":   true,
			"number": float64(5),
			"map":    map[string]any{"nested": "value"},
			"slice":  []any{"a", "b"},
		}
		for key, value := range values {
			if err := s.Set(ctx, key, value); err != nil {
				t.Fatalf("set %q: %v", key, err)
			}
		}
		for key, want := range values {
			got, ok, err := s.Get(ctx, key)
			if err != nil {
				t.Fatalf("get %q: %v", key, err)
			}
			if !ok {
				t.Fatalf("expected %q to be present", key)
			}
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("value mismatch for %q: want %#v got %#v", key, want, got)
			}
		}
	})

	t.Run("nil is a stored value", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Set(ctx, "empty", nil); err != nil {
			t.Fatalf("set: %v", err)
		}
		value, ok, err := s.Get(ctx, "empty")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !ok || value != nil {
			t.Fatalf("expected present nil value, got %v (ok=%v)", value, ok)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, v := range []string{"one", "two", "three"} {
			if err := s.Set(ctx, "mode", v); err != nil {
				t.Fatalf("set: %v", err)
			}
		}
		value, _, err := s.Get(ctx, "mode")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if value != "three" {
			t.Fatalf("expected last write, got %v", value)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Set(ctx, fmt.Sprintf("key-%d", i), float64(i))
			}(i)
		}
		wg.Wait()
		for i := 0; i < 8; i++ {
			value, ok, err := s.Get(ctx, fmt.Sprintf("key-%d", i))
			if err != nil || !ok || value != float64(i) {
				t.Fatalf("key-%d: got %v ok=%v err=%v", i, value, ok, err)
			}
		}
	})
}
