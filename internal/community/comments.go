package community

import (
	"context"
	"strings"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
)

// CommentStore maps post ids to their ordered comments and persists the whole
// mapping after every mutation.
type CommentStore struct {
	repo    kvstore.Repository[map[PostID][]Comment]
	aliases *AliasRegistry
	ids     IDProvider
	clock   func() time.Time
}

func NewCommentStore(repo kvstore.Repository[map[PostID][]Comment], aliases *AliasRegistry, ids IDProvider, clock func() time.Time) *CommentStore {
	if clock == nil {
		clock = time.Now
	}
	if ids == nil {
		ids = NewClockIDProvider(clock)
	}
	return &CommentStore{repo: repo, aliases: aliases, ids: ids, clock: clock}
}

// Get returns the comments of a post in insertion order, or an empty list.
func (s *CommentStore) Get(ctx context.Context, postID PostID) []Comment {
	return withPostID(postID, s.repo.Load(ctx)[postID])
}

// Add appends a comment written by actorID under their alias. Blank text is
// a silent no-op.
func (s *CommentStore) Add(ctx context.Context, actorID string, postID PostID, text string) (Comment, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Comment{}, false
	}
	alias := s.aliases.AliasFor(ctx, actorID)

	mapping := s.repo.Load(ctx)
	existing := mapping[postID]
	comment := Comment{
		ID:              s.freeID(existing),
		PostID:          postID,
		Text:            trimmed,
		Author:          alias,
		CreatedAtMillis: s.clock().UnixMilli(),
	}
	next := make([]Comment, 0, len(existing)+1)
	next = append(next, existing...)
	next = append(next, comment)

	s.save(ctx, mapping, postID, next)
	return comment, true
}

// Remove drops one comment from a post's list.
func (s *CommentStore) Remove(ctx context.Context, postID PostID, commentID CommentID) bool {
	mapping := s.repo.Load(ctx)
	existing := mapping[postID]
	next := make([]Comment, 0, len(existing))
	found := false
	for _, comment := range existing {
		if comment.ID == commentID {
			found = true
			continue
		}
		next = append(next, comment)
	}
	if !found {
		return false
	}
	s.save(ctx, mapping, postID, next)
	return true
}

// Purge forgets every comment of a post.
func (s *CommentStore) Purge(ctx context.Context, postID PostID) bool {
	mapping := s.repo.Load(ctx)
	if _, ok := mapping[postID]; !ok {
		return false
	}
	delete(mapping, postID)
	s.repo.Save(ctx, mapping)
	return true
}

// Counts returns the number of comments recorded per post.
func (s *CommentStore) Counts(ctx context.Context) map[PostID]int {
	mapping := s.repo.Load(ctx)
	counts := make(map[PostID]int, len(mapping))
	for postID, comments := range mapping {
		counts[postID] = len(comments)
	}
	return counts
}

func (s *CommentStore) save(ctx context.Context, mapping map[PostID][]Comment, postID PostID, comments []Comment) {
	if mapping == nil {
		mapping = make(map[PostID][]Comment, 1)
	}
	mapping[postID] = comments
	s.repo.Save(ctx, mapping)
}

func (s *CommentStore) freeID(existing []Comment) CommentID {
	id := CommentID(s.ids.NextID())
	for _, comment := range existing {
		if comment.ID >= id {
			id = comment.ID + 1
		}
	}
	return id
}

// Comments stored before postId was recorded carry only their map key.
func withPostID(postID PostID, comments []Comment) []Comment {
	out := make([]Comment, len(comments))
	for index, comment := range comments {
		comment.PostID = postID
		out[index] = comment
	}
	return out
}
