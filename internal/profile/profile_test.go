package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/mannmitra/backend/internal/kvstore"
)

type fixedRandom int

func (r fixedRandom) IntN(n int) int {
	return int(r) % n
}

func newTestStore() (*Store, *kvstore.Adapter) {
	adapter := kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
	return NewStore(Config{Adapter: adapter, Random: fixedRandom(234)}), adapter
}

func TestLoadReturnsPersistedDefaults(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	profile, err := store.Load(ctx, "scope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	expected := Profile{
		Name:           "Anonymous",
		Username:       "shinchan_1234",
		Bio:            "Hey! I’m exploring MannMitra 💚",
		Theme:          ThemeSystem,
		NotifyWhatsapp: true,
		HideIdentity:   true,
	}
	if profile != expected {
		t.Fatalf("unexpected defaults %+v", profile)
	}

	store.random = fixedRandom(9)
	again, err := store.Load(ctx, "scope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again.Username != "shinchan_1234" {
		t.Fatalf("expected stable username, got %s", again.Username)
	}
}

func TestLoadMergesPartialDocument(t *testing.T) {
	store, adapter := newTestStore()
	ctx := context.Background()
	key := kvstore.ScopedKey("scope", KeyProfile)
	if err := adapter.Backend().Set(ctx, key, []byte(`{"name":"Riya","theme":"dark"}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	profile, err := store.Load(ctx, "scope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if profile.Name != "Riya" || profile.Theme != ThemeDark {
		t.Fatalf("stored fields lost: %+v", profile)
	}
	if !profile.NotifyWhatsapp || !profile.HideIdentity || profile.Username != "shinchan_1234" {
		t.Fatalf("defaults not merged: %+v", profile)
	}
}

// countingRandom draws a different value on every call.
type countingRandom struct {
	next int
}

func (r *countingRandom) IntN(n int) int {
	r.next++
	return r.next % n
}

func TestLoadPinsUsernameMissingFromStoredDocument(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "blank-username", raw: `{"name":"Riya","username":""}`},
		{name: "no-username", raw: `{"name":"Riya"}`},
		{name: "corrupt", raw: `["not","a","profile"]`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			adapter := kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
			store := NewStore(Config{Adapter: adapter, Random: &countingRandom{}})
			ctx := context.Background()
			if err := adapter.Backend().Set(ctx, kvstore.ScopedKey("scope", KeyProfile), []byte(testCase.raw)); err != nil {
				t.Fatalf("seed: %v", err)
			}

			first, err := store.Load(ctx, "scope")
			if err != nil {
				t.Fatalf("first load: %v", err)
			}
			second, err := store.Load(ctx, "scope")
			if err != nil {
				t.Fatalf("second load: %v", err)
			}
			if first.Username == "" || first.Username != second.Username {
				t.Fatalf("username not stable: first=%q second=%q", first.Username, second.Username)
			}
			if first.Name != second.Name {
				t.Fatalf("name changed between loads: %q then %q", first.Name, second.Name)
			}
		})
	}
}

func TestLoadFallsBackOnCorruptDocument(t *testing.T) {
	store, adapter := newTestStore()
	ctx := context.Background()
	_ = adapter.Backend().Set(ctx, kvstore.ScopedKey("scope", KeyProfile), []byte(`["not","a","profile"]`))

	profile, err := store.Load(ctx, "scope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if profile.Name != "Anonymous" {
		t.Fatalf("expected defaults, got %+v", profile)
	}
}

func TestSaveValidatesAndReset(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	profile, _ := store.Load(ctx, "scope")
	profile.Theme = "neon"
	if _, err := store.Save(ctx, "scope", profile); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for theme, got %v", err)
	}

	profile.Theme = " Light "
	profile.Name = "  Kabir "
	saved, err := store.Save(ctx, "scope", profile)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Theme != ThemeLight || saved.Name != "Kabir" {
		t.Fatalf("expected normalized profile, got %+v", saved)
	}
	loaded, _ := store.Load(ctx, "scope")
	if loaded != saved {
		t.Fatalf("expected %+v, got %+v", saved, loaded)
	}

	if err := store.Reset(ctx, "scope"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	reset, _ := store.Load(ctx, "scope")
	if reset.Name != "Anonymous" || reset.Theme != ThemeSystem {
		t.Fatalf("expected defaults after reset, got %+v", reset)
	}
}

func TestRequiresScope(t *testing.T) {
	store, _ := newTestStore()
	if _, err := store.Load(context.Background(), ""); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
}
