package community

import (
	"context"
	"testing"
	"time"
)

func newTestPostStore(clock *manualClock) *PostStore {
	return NewPostStore(newPostRepo(newTestAdapter()), NewClockIDProvider(clock.Now), clock.Now, nil)
}

func TestCreatePostAddsSingleEntryWithZeroVotes(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	store := newTestPostStore(clock)

	post, created, err := store.Create(ctx, "user-1", Draft{Title: "  Hello  ", Body: " body "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected post to be created")
	}
	if post.Votes != 0 || post.Flair != FlairGeneral || post.Title != "Hello" || post.Body != "body" {
		t.Fatalf("unexpected post %#v", post)
	}
	if post.Author != "user-1" {
		t.Fatalf("expected author to be the acting user, got %q", post.Author)
	}
	if posts := store.List(ctx); len(posts) != 1 || posts[0].ID != post.ID {
		t.Fatalf("expected exactly one stored post, got %#v", posts)
	}
}

func TestCreatePostIgnoresBlankTitle(t *testing.T) {
	ctx := context.Background()
	store := newTestPostStore(newManualClock())

	_, created, err := store.Create(ctx, "user-1", Draft{Title: "   ", Body: "text"})
	if err != nil || created {
		t.Fatalf("expected silent no-op, got created=%v err=%v", created, err)
	}
	if posts := store.List(ctx); len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
}

func TestCreatePostRejectsUnknownFlair(t *testing.T) {
	store := newTestPostStore(newManualClock())
	if _, _, err := store.Create(context.Background(), "user-1", Draft{Title: "t", Flair: "Memes"}); err == nil {
		t.Fatalf("expected invalid flair error")
	}
}

func TestCreatePostInsertsAtHeadWithUniqueIDs(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	store := newTestPostStore(clock)

	first, _, _ := store.Create(ctx, "user-1", Draft{Title: "first", Flair: FlairVentBox})
	second, _, _ := store.Create(ctx, "user-1", Draft{Title: "second", Flair: "Professionals"})
	if first.ID == second.ID {
		t.Fatalf("expected unique ids, both %d", first.ID)
	}
	posts := store.List(ctx)
	if posts[0].ID != second.ID || posts[1].ID != first.ID {
		t.Fatalf("expected newest first, got %#v", posts)
	}
}

func TestDownvoteNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	store := newTestPostStore(newManualClock())
	post, _, _ := store.Create(ctx, "user-1", Draft{Title: "floor"})

	store.Upvote(ctx, post.ID)
	for i := 0; i < 5; i++ {
		updated, ok := store.Downvote(ctx, post.ID)
		if !ok {
			t.Fatalf("expected post to exist")
		}
		if updated.Votes < 0 {
			t.Fatalf("votes went negative: %d", updated.Votes)
		}
	}
	stored, _ := store.Get(ctx, post.ID)
	if stored.Votes != 0 {
		t.Fatalf("expected votes to stay at 0, got %d", stored.Votes)
	}
}

func TestVotesOnMissingPostReportNotFound(t *testing.T) {
	store := newTestPostStore(newManualClock())
	if _, ok := store.Upvote(context.Background(), 42); ok {
		t.Fatalf("expected missing post")
	}
	if store.Delete(context.Background(), 42) {
		t.Fatalf("expected delete of missing post to report false")
	}
}

func TestListSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	adapter := newTestAdapter()
	store := NewPostStore(newPostRepo(adapter), nil, clock.Now, DefaultSeedPosts)

	posts := store.List(ctx)
	if len(posts) != 2 || posts[0].Author != "Sam" || posts[1].Author != "Aarav" {
		t.Fatalf("expected seed posts, got %#v", posts)
	}
	if posts[0].CreatedAtMillis != clock.Now().Add(-3*time.Hour).UnixMilli() {
		t.Fatalf("unexpected seed timestamp %d", posts[0].CreatedAtMillis)
	}

	store.Delete(ctx, 1)
	store.Delete(ctx, 2)
	if posts := store.List(ctx); len(posts) != 2 || posts[0].Author != "Sam" {
		t.Fatalf("expected emptied store to be reseeded, got %#v", posts)
	}

	adapter.Save(ctx, KeyPosts, []Post{})
	if posts := store.List(ctx); len(posts) != 2 {
		t.Fatalf("expected stored [] to be reseeded, got %#v", posts)
	}
}

func TestListWithoutSeedsStaysEmpty(t *testing.T) {
	store := NewPostStore(newPostRepo(newTestAdapter()), nil, newManualClock().Now, nil)
	if posts := store.List(context.Background()); posts == nil || len(posts) != 0 {
		t.Fatalf("expected an empty non-nil list, got %#v", posts)
	}
}
