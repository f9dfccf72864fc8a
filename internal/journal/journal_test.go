package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
)

func newTestJournal(now *time.Time) (*Journal, *kvstore.Adapter) {
	adapter := kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
	return New(Config{Adapter: adapter, Clock: func() time.Time { return *now }}), adapter
}

func TestJournalSaveListNewestFirst(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	journal, _ := newTestJournal(&now)
	ctx := context.Background()

	if _, saved, err := journal.Save(ctx, "scope-a", "   "); err != nil || saved {
		t.Fatalf("blank text should be ignored, saved=%v err=%v", saved, err)
	}

	first, saved, err := journal.Save(ctx, "scope-a", "  felt heavy today ")
	if err != nil || !saved {
		t.Fatalf("save: saved=%v err=%v", saved, err)
	}
	if first.Text != "felt heavy today" || first.Date != "3/5/2024, 2:07:09 PM" {
		t.Fatalf("unexpected entry %+v", first)
	}
	second, _, err := journal.Save(ctx, "scope-a", "a walk helped")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	entries, err := journal.List(ctx, "scope-a", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	other, err := journal.List(ctx, "scope-b", "")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected empty journal in another scope, got %+v err=%v", other, err)
	}
}

func TestJournalSearchMatchesTextOrDate(t *testing.T) {
	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	journal, _ := newTestJournal(&now)
	ctx := context.Background()
	_, _, _ = journal.Save(ctx, "scope", "Exam Stress")
	now = time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	_, _, _ = journal.Save(ctx, "scope", "calm evening")

	byText, _ := journal.List(ctx, "scope", "stress")
	if len(byText) != 1 || byText[0].Text != "Exam Stress" {
		t.Fatalf("expected text match, got %+v", byText)
	}
	byDate, _ := journal.List(ctx, "scope", "4/1/2024")
	if len(byDate) != 1 || byDate[0].Text != "calm evening" {
		t.Fatalf("expected date match, got %+v", byDate)
	}
}

func TestJournalDeleteAndClear(t *testing.T) {
	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	journal, adapter := newTestJournal(&now)
	ctx := context.Background()
	entry, _, _ := journal.Save(ctx, "scope", "one")
	_, _, _ = journal.Save(ctx, "scope", "two")

	if err := journal.Delete(ctx, "scope", entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := journal.Delete(ctx, "scope", entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	entries, _ := journal.List(ctx, "scope", "")
	if len(entries) != 1 || entries[0].Text != "two" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := journal.Clear(ctx, "scope"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := adapter.Backend().Get(ctx, kvstore.ScopedKey("scope", KeyJournal)); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
}

func TestJournalRequiresScope(t *testing.T) {
	now := time.Now()
	journal, _ := newTestJournal(&now)
	if _, _, err := journal.Save(context.Background(), " ", "text"); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
}
