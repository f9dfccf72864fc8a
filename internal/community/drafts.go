package community

import (
	"context"

	"github.com/mannmitra/backend/internal/kvstore"
)

// BlankDraft is the draft shown when nothing is being composed.
func BlankDraft() Draft {
	return Draft{Title: "", Body: "", Flair: FlairGeneral}
}

// DraftStore persists the single in-progress post.
type DraftStore struct {
	repo kvstore.Repository[Draft]
}

func NewDraftStore(repo kvstore.Repository[Draft]) *DraftStore {
	return &DraftStore{repo: repo}
}

func (s *DraftStore) Load(ctx context.Context) Draft {
	draft := s.repo.Load(ctx)
	if draft.Flair == "" {
		draft.Flair = FlairGeneral
	}
	return draft
}

// Save replaces the draft. Text is kept verbatim so typing is not disturbed.
func (s *DraftStore) Save(ctx context.Context, draft Draft) (Draft, error) {
	flair, err := ParseFlair(string(draft.Flair))
	if err != nil {
		return Draft{}, err
	}
	draft.Flair = flair
	s.repo.Save(ctx, draft)
	return draft, nil
}

// Clear resets the draft to BlankDraft and persists it.
func (s *DraftStore) Clear(ctx context.Context) Draft {
	blank := BlankDraft()
	s.repo.Save(ctx, blank)
	return blank
}
