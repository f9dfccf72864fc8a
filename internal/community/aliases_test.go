package community

import (
	"context"
	"strings"
	"testing"
)

func TestAliasForIsStableAndPersisted(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter()
	registry := NewAliasRegistry(newAliasRepo(adapter), &fixedRandom{values: []int{3}}, nil)

	first := registry.AliasFor(ctx, "user-1")
	second := registry.AliasFor(ctx, "user-1")
	if first != second {
		t.Fatalf("expected stable alias, got %q then %q", first, second)
	}

	reloaded := NewAliasRegistry(newAliasRepo(adapter), &fixedRandom{values: []int{0}}, nil)
	if alias := reloaded.AliasFor(ctx, "user-1"); alias != first {
		t.Fatalf("expected persisted alias %q, got %q", first, alias)
	}
}

func TestAliasForDrawsWithoutReplacement(t *testing.T) {
	ctx := context.Background()
	pool := []string{"Tom", "Jerry", "Goofy"}
	registry := NewAliasRegistry(newAliasRepo(newTestAdapter()), &fixedRandom{values: []int{0}}, pool)

	seen := make(map[string]string)
	for _, rawID := range []string{"a", "b", "c"} {
		alias := registry.AliasFor(ctx, rawID)
		if other, taken := seen[alias]; taken {
			t.Fatalf("alias %q assigned to both %q and %q", alias, other, rawID)
		}
		seen[alias] = rawID
	}
	if len(seen) != len(pool) {
		t.Fatalf("expected the whole pool to be used, got %v", seen)
	}
}

func TestAliasForFallsBackOncePoolIsExhausted(t *testing.T) {
	ctx := context.Background()
	registry := NewAliasRegistry(newAliasRepo(newTestAdapter()), &fixedRandom{values: []int{0, 1, 2, 3, 4, 5}}, []string{"Pooh"})

	if alias := registry.AliasFor(ctx, "first"); alias != "Pooh" {
		t.Fatalf("expected pool alias, got %q", alias)
	}
	fallback := registry.AliasFor(ctx, "second")
	if !strings.HasPrefix(fallback, "Anon-") || len(fallback) != len("Anon-")+4 {
		t.Fatalf("unexpected fallback alias %q", fallback)
	}
}

func TestAliasForFallbackNeverCollides(t *testing.T) {
	ctx := context.Background()
	// A constant random source always proposes the same token, forcing the
	// registry to grow the token length to find a free alias.
	registry := NewAliasRegistry(newAliasRepo(newTestAdapter()), &fixedRandom{values: []int{0}}, []string{"Pooh"})

	registry.AliasFor(ctx, "pool")
	first := registry.AliasFor(ctx, "one")
	second := registry.AliasFor(ctx, "two")
	if first == second {
		t.Fatalf("fallback aliases collided: %q", first)
	}
	if first != "Anon-0000" || second != "Anon-00000" {
		t.Fatalf("unexpected fallback aliases %q %q", first, second)
	}
}
