package community

import (
	"context"
	"strings"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
)

// SeedFunc produces the posts shown when the post collection is empty.
type SeedFunc func(now time.Time) []Post

// DefaultSeedPosts returns the two starter discussions.
func DefaultSeedPosts(now time.Time) []Post {
	return []Post{
		{
			ID:              1,
			Author:          "Sam",
			Flair:           FlairGuidedMeditation,
			Title:           "What’s your go-to 5-minute breathing routine?",
			Body:            "Share a quick breathing exercise that helps you re-center.",
			Votes:           24,
			CreatedAtMillis: now.Add(-3 * time.Hour).UnixMilli(),
		},
		{
			ID:              2,
			Author:          "Aarav",
			Flair:           FlairVentBox,
			Title:           "Feeling overwhelmed with exams",
			Body:            "Any tips to manage study anxiety without burning out?",
			Votes:           11,
			CreatedAtMillis: now.Add(-8 * time.Hour).UnixMilli(),
		},
	}
}

// PostStore keeps the ordered post collection, newest insertion first.
// Every mutation rewrites the whole collection.
type PostStore struct {
	repo  kvstore.Repository[[]Post]
	ids   IDProvider
	clock func() time.Time
	seeds SeedFunc
}

// NewPostStore builds a store over the posts repository. A nil seeds func
// leaves an empty store empty.
func NewPostStore(repo kvstore.Repository[[]Post], ids IDProvider, clock func() time.Time, seeds SeedFunc) *PostStore {
	if clock == nil {
		clock = time.Now
	}
	if ids == nil {
		ids = NewClockIDProvider(clock)
	}
	return &PostStore{repo: repo, ids: ids, clock: clock, seeds: seeds}
}

// List returns every post in store order. An empty or never-written store is
// seeded and the seed persisted.
func (s *PostStore) List(ctx context.Context) []Post {
	posts := s.repo.Load(ctx)
	if len(posts) > 0 {
		return posts
	}
	if s.seeds == nil {
		return []Post{}
	}
	seeded := s.seeds(s.clock())
	if seeded == nil {
		seeded = []Post{}
	}
	s.repo.Save(ctx, seeded)
	return seeded
}

// Get returns the post with the given id.
func (s *PostStore) Get(ctx context.Context, id PostID) (Post, bool) {
	for _, post := range s.List(ctx) {
		if post.ID == id {
			return post, true
		}
	}
	return Post{}, false
}

// Create inserts a post authored by author at the head of the collection.
// A title that trims to empty is a silent no-op (created is false).
func (s *PostStore) Create(ctx context.Context, author string, draft Draft) (post Post, created bool, err error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return Post{}, false, nil
	}
	flair, err := ParseFlair(string(draft.Flair))
	if err != nil {
		return Post{}, false, err
	}

	posts := s.List(ctx)
	post = Post{
		ID:              s.freeID(posts),
		Author:          author,
		Flair:           flair,
		Title:           title,
		Body:            strings.TrimSpace(draft.Body),
		Votes:           0,
		CreatedAtMillis: s.clock().UnixMilli(),
	}

	next := make([]Post, 0, len(posts)+1)
	next = append(next, post)
	next = append(next, posts...)
	s.repo.Save(ctx, next)
	return post, true, nil
}

// Upvote adds one vote.
func (s *PostStore) Upvote(ctx context.Context, id PostID) (Post, bool) {
	return s.update(ctx, id, func(post *Post) {
		post.Votes++
	})
}

// Downvote removes one vote, never going below zero.
func (s *PostStore) Downvote(ctx context.Context, id PostID) (Post, bool) {
	return s.update(ctx, id, func(post *Post) {
		post.Votes = max(0, post.Votes-1)
	})
}

// Delete removes the post unconditionally; authorship is checked by callers.
func (s *PostStore) Delete(ctx context.Context, id PostID) bool {
	posts := s.List(ctx)
	next := make([]Post, 0, len(posts))
	found := false
	for _, post := range posts {
		if post.ID == id {
			found = true
			continue
		}
		next = append(next, post)
	}
	if !found {
		return false
	}
	s.repo.Save(ctx, next)
	return true
}

func (s *PostStore) update(ctx context.Context, id PostID, mutate func(*Post)) (Post, bool) {
	posts := s.List(ctx)
	for index := range posts {
		if posts[index].ID != id {
			continue
		}
		mutate(&posts[index])
		s.repo.Save(ctx, posts)
		return posts[index], true
	}
	return Post{}, false
}

func (s *PostStore) freeID(posts []Post) PostID {
	taken := make(map[PostID]struct{}, len(posts))
	for _, post := range posts {
		taken[post.ID] = struct{}{}
	}
	id := PostID(s.ids.NextID())
	for {
		if _, exists := taken[id]; !exists {
			return id
		}
		id++
	}
}
