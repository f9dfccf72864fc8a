package community

import (
	"context"

	"github.com/mannmitra/backend/internal/kvstore"
)

// SavedSet is the set of bookmarked post ids, persisted in insertion order.
type SavedSet struct {
	repo kvstore.Repository[[]PostID]
}

func NewSavedSet(repo kvstore.Repository[[]PostID]) *SavedSet {
	return &SavedSet{repo: repo}
}

// List returns the saved ids in insertion order.
func (s *SavedSet) List(ctx context.Context) []PostID {
	return dedupe(s.repo.Load(ctx))
}

// Contains reports membership.
func (s *SavedSet) Contains(ctx context.Context, id PostID) bool {
	for _, saved := range s.List(ctx) {
		if saved == id {
			return true
		}
	}
	return false
}

// Toggle adds the id when absent and removes it when present. It returns the
// membership after the toggle.
func (s *SavedSet) Toggle(ctx context.Context, id PostID) bool {
	current := s.List(ctx)
	next := make([]PostID, 0, len(current)+1)
	removed := false
	for _, saved := range current {
		if saved == id {
			removed = true
			continue
		}
		next = append(next, saved)
	}
	if !removed {
		next = append(next, id)
	}
	s.repo.Save(ctx, next)
	return !removed
}

// Remove drops the id if present.
func (s *SavedSet) Remove(ctx context.Context, id PostID) bool {
	if !s.Contains(ctx, id) {
		return false
	}
	s.Toggle(ctx, id)
	return true
}

func dedupe(ids []PostID) []PostID {
	seen := make(map[PostID]struct{}, len(ids))
	out := make([]PostID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
