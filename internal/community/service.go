package community

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
	"go.uber.org/zap"
)

// Storage keys, one JSON document each, namespaced per scope.
const (
	KeyAliases  = "mm.community.aliases"
	KeyPosts    = "mm.community.posts"
	KeySaved    = "mm.community.saved"
	KeyDraft    = "mm.community.draft"
	KeyComments = "mm.community.comments"
)

const savedPreviewLimit = 6

var (
	errMissingAdapter = errors.New("storage adapter is required")
	noOpLogger        = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew     = "community.service.new"
	opFeed           = "community.feed"
	opCreatePost     = "community.create_post"
	opSubmitDraft    = "community.submit_draft"
	opVote           = "community.vote"
	opDeletePost     = "community.delete_post"
	opToggleSaved    = "community.toggle_saved"
	opSavedPosts     = "community.saved_posts"
	opComments       = "community.comments"
	opAddComment     = "community.add_comment"
	opDeleteComment  = "community.delete_comment"
	opDraft          = "community.draft"
	opShare          = "community.share"
	reasonInvalid    = "invalid_actor"
	reasonNotFound   = "post_not_found"
	reasonNotAuthor  = "not_author"
	reasonBadFlair   = "invalid_flair"
	reasonNoComment  = "comment_not_found"
	reasonMissingDep = "missing_adapter"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ChangeKind names what changed in a scope.
type ChangeKind string

const (
	ChangePosts    ChangeKind = "posts"
	ChangeComments ChangeKind = "comments"
	ChangeSaved    ChangeKind = "saved"
	ChangeDraft    ChangeKind = "draft"
)

// ChangeEvent tells listeners of a scope that derived views are stale.
type ChangeEvent struct {
	ScopeID   string
	Kind      ChangeKind
	PostIDs   []PostID
	Timestamp time.Time
}

// Notifier receives change events after every mutation.
type Notifier interface {
	Publish(event ChangeEvent)
}

type ServiceConfig struct {
	Adapter    *kvstore.Adapter
	Clock      func() time.Time
	IDProvider IDProvider
	Random     Random
	PageSize   int
	// Seeds populates a scope whose post key was never written. Nil disables seeding.
	Seeds    SeedFunc
	Notifier Notifier
	Logger   *zap.Logger
}

// Service exposes the community operations for an acting user within their
// scope. Operations on one scope are serialized.
type Service struct {
	adapter  *kvstore.Adapter
	clock    func() time.Time
	ids      IDProvider
	random   Random
	pageSize int
	seeds    SeedFunc
	notifier Notifier
	logger   *zap.Logger
	locks    sync.Map
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Adapter == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDep, errMissingAdapter)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewClockIDProvider(clock)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		adapter:  cfg.Adapter,
		clock:    clock,
		ids:      ids,
		random:   cfg.Random,
		pageSize: pageSize,
		seeds:    cfg.Seeds,
		notifier: cfg.Notifier,
		logger:   logger,
	}, nil
}

// PageSize returns the number of posts per feed page.
func (s *Service) PageSize() int {
	return s.pageSize
}

type scopeStores struct {
	aliases  *AliasRegistry
	posts    *PostStore
	comments *CommentStore
	saved    *SavedSet
	drafts   *DraftStore
}

func (s *Service) stores(scopeID string) scopeStores {
	aliases := NewAliasRegistry(
		kvstore.NewRepository(s.adapter, kvstore.ScopedKey(scopeID, KeyAliases), func() map[string]string { return map[string]string{} }),
		s.random,
		nil,
	)
	return scopeStores{
		aliases: aliases,
		posts: NewPostStore(
			kvstore.NewRepository[[]Post](s.adapter, kvstore.ScopedKey(scopeID, KeyPosts), nil),
			s.ids, s.clock, s.seeds,
		),
		comments: NewCommentStore(
			kvstore.NewRepository(s.adapter, kvstore.ScopedKey(scopeID, KeyComments), func() map[PostID][]Comment { return map[PostID][]Comment{} }),
			aliases, s.ids, s.clock,
		),
		saved: NewSavedSet(
			kvstore.NewRepository(s.adapter, kvstore.ScopedKey(scopeID, KeySaved), func() []PostID { return []PostID{} }),
		),
		drafts: NewDraftStore(
			kvstore.NewRepository(s.adapter, kvstore.ScopedKey(scopeID, KeyDraft), BlankDraft),
		),
	}
}

// withScope validates the actor and runs fn holding the scope lock.
func (s *Service) withScope(operation string, actor Actor, fn func(stores scopeStores) error) error {
	if err := actor.Validate(); err != nil {
		return newServiceError(operation, reasonInvalid, err)
	}
	value, _ := s.locks.LoadOrStore(actor.ScopeID, &sync.Mutex{})
	lock := value.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()
	return fn(s.stores(actor.ScopeID))
}

// FeedItem is a visible post decorated for display.
type FeedItem struct {
	Post
	Alias        string
	CommentCount int
	Saved        bool
	CanDelete    bool
}

// Feed is the paginated result of a filter.
type Feed struct {
	Items    []FeedItem
	Total    int
	Page     int
	PageSize int
	HasMore  bool
	Filter   Filter
}

// Feed computes the visible list for the filter. Resolving display aliases
// may assign and persist new aliases.
func (s *Service) Feed(ctx context.Context, actor Actor, filter Filter) (Feed, error) {
	var feed Feed
	err := s.withScope(opFeed, actor, func(stores scopeStores) error {
		posts := stores.posts.List(ctx)
		saved := stores.saved.List(ctx)
		view := Apply(posts, saved, actor.UserID, filter, s.pageSize)
		counts := stores.comments.Counts(ctx)
		savedSet := make(map[PostID]struct{}, len(saved))
		for _, id := range saved {
			savedSet[id] = struct{}{}
		}

		items := make([]FeedItem, 0, len(view.Posts))
		for _, post := range view.Posts {
			_, isSaved := savedSet[post.ID]
			items = append(items, FeedItem{
				Post:         post,
				Alias:        stores.aliases.AliasFor(ctx, post.Author),
				CommentCount: counts[post.ID],
				Saved:        isSaved,
				CanDelete:    post.Author == actor.UserID,
			})
		}
		normalized := filter.clone()
		normalized.Page = view.Page
		feed = Feed{
			Items:    items,
			Total:    view.Total,
			Page:     view.Page,
			PageSize: view.PageSize,
			HasMore:  view.HasMore,
			Filter:   normalized,
		}
		return nil
	})
	return feed, err
}

// CreatePost publishes a post authored by the actor. A blank title is a
// silent no-op reported through created=false.
func (s *Service) CreatePost(ctx context.Context, actor Actor, draft Draft) (post Post, created bool, err error) {
	err = s.withScope(opCreatePost, actor, func(stores scopeStores) error {
		var createErr error
		post, created, createErr = stores.posts.Create(ctx, actor.UserID, draft)
		if createErr != nil {
			return newServiceError(opCreatePost, reasonBadFlair, createErr)
		}
		return nil
	})
	if err != nil || !created {
		return post, created, err
	}
	s.logger.Debug("post created", zap.String("scope_id", actor.ScopeID), zap.Int64("post_id", int64(post.ID)))
	s.publish(actor.ScopeID, ChangePosts, post.ID)
	return post, true, nil
}

// SubmitDraft publishes the stored draft and clears it. A draft with a blank
// title stays in place.
func (s *Service) SubmitDraft(ctx context.Context, actor Actor) (post Post, created bool, err error) {
	err = s.withScope(opSubmitDraft, actor, func(stores scopeStores) error {
		draft := stores.drafts.Load(ctx)
		var createErr error
		post, created, createErr = stores.posts.Create(ctx, actor.UserID, draft)
		if createErr != nil {
			return newServiceError(opSubmitDraft, reasonBadFlair, createErr)
		}
		if created {
			stores.drafts.Clear(ctx)
		}
		return nil
	})
	if err != nil || !created {
		return post, created, err
	}
	s.publish(actor.ScopeID, ChangePosts, post.ID)
	s.publish(actor.ScopeID, ChangeDraft)
	return post, true, nil
}

// Upvote adds one vote to the post.
func (s *Service) Upvote(ctx context.Context, actor Actor, id PostID) (Post, error) {
	return s.vote(ctx, actor, id, (*PostStore).Upvote)
}

// Downvote removes one vote, flooring at zero.
func (s *Service) Downvote(ctx context.Context, actor Actor, id PostID) (Post, error) {
	return s.vote(ctx, actor, id, (*PostStore).Downvote)
}

func (s *Service) vote(ctx context.Context, actor Actor, id PostID, apply func(*PostStore, context.Context, PostID) (Post, bool)) (Post, error) {
	var post Post
	err := s.withScope(opVote, actor, func(stores scopeStores) error {
		updated, ok := apply(stores.posts, ctx, id)
		if !ok {
			return newServiceError(opVote, reasonNotFound, ErrPostNotFound)
		}
		post = updated
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	s.publish(actor.ScopeID, ChangePosts, id)
	return post, nil
}

// DeletePost removes a post the actor authored, together with its comments
// and its saved-set membership.
func (s *Service) DeletePost(ctx context.Context, actor Actor, id PostID) error {
	err := s.withScope(opDeletePost, actor, func(stores scopeStores) error {
		post, ok := stores.posts.Get(ctx, id)
		if !ok {
			return newServiceError(opDeletePost, reasonNotFound, ErrPostNotFound)
		}
		if post.Author != actor.UserID {
			return newServiceError(opDeletePost, reasonNotAuthor, ErrNotAuthor)
		}
		stores.posts.Delete(ctx, id)
		stores.comments.Purge(ctx, id)
		stores.saved.Remove(ctx, id)
		return nil
	})
	if err != nil {
		s.logError(opDeletePost, err, zap.String("scope_id", actor.ScopeID), zap.Int64("post_id", int64(id)))
		return err
	}
	s.publish(actor.ScopeID, ChangePosts, id)
	return nil
}

// ToggleSaved flips the bookmark on a post and returns the new membership.
// Unsaving works for ids whose post no longer exists.
func (s *Service) ToggleSaved(ctx context.Context, actor Actor, id PostID) (bool, error) {
	var saved bool
	err := s.withScope(opToggleSaved, actor, func(stores scopeStores) error {
		if !stores.saved.Contains(ctx, id) {
			if _, ok := stores.posts.Get(ctx, id); !ok {
				return newServiceError(opToggleSaved, reasonNotFound, ErrPostNotFound)
			}
		}
		saved = stores.saved.Toggle(ctx, id)
		return nil
	})
	if err != nil {
		return false, err
	}
	s.publish(actor.ScopeID, ChangeSaved, id)
	return saved, nil
}

// SavedPosts lists saved posts in store order, at most limit entries
// (limit <= 0 uses the sidebar preview size).
func (s *Service) SavedPosts(ctx context.Context, actor Actor, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = savedPreviewLimit
	}
	var out []Post
	err := s.withScope(opSavedPosts, actor, func(stores scopeStores) error {
		saved := stores.saved.List(ctx)
		savedSet := make(map[PostID]struct{}, len(saved))
		for _, id := range saved {
			savedSet[id] = struct{}{}
		}
		out = make([]Post, 0, min(limit, len(saved)))
		for _, post := range stores.posts.List(ctx) {
			if len(out) == limit {
				break
			}
			if _, ok := savedSet[post.ID]; ok {
				out = append(out, post)
			}
		}
		return nil
	})
	return out, err
}

// Comments returns the comments recorded for a post.
func (s *Service) Comments(ctx context.Context, actor Actor, postID PostID) ([]Comment, error) {
	var comments []Comment
	err := s.withScope(opComments, actor, func(stores scopeStores) error {
		comments = stores.comments.Get(ctx, postID)
		return nil
	})
	return comments, err
}

// AddComment appends a comment under the actor's alias. Blank text is a
// silent no-op reported through created=false.
func (s *Service) AddComment(ctx context.Context, actor Actor, postID PostID, text string) (comment Comment, created bool, err error) {
	err = s.withScope(opAddComment, actor, func(stores scopeStores) error {
		if _, ok := stores.posts.Get(ctx, postID); !ok {
			return newServiceError(opAddComment, reasonNotFound, ErrPostNotFound)
		}
		comment, created = stores.comments.Add(ctx, actor.UserID, postID, text)
		return nil
	})
	if err != nil || !created {
		return comment, created, err
	}
	s.publish(actor.ScopeID, ChangeComments, postID)
	return comment, true, nil
}

// DeleteComment removes a single comment.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, postID PostID, commentID CommentID) error {
	err := s.withScope(opDeleteComment, actor, func(stores scopeStores) error {
		if !stores.comments.Remove(ctx, postID, commentID) {
			return newServiceError(opDeleteComment, reasonNoComment, ErrCommentNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(actor.ScopeID, ChangeComments, postID)
	return nil
}

// Draft returns the in-progress post.
func (s *Service) Draft(ctx context.Context, actor Actor) (Draft, error) {
	var draft Draft
	err := s.withScope(opDraft, actor, func(stores scopeStores) error {
		draft = stores.drafts.Load(ctx)
		return nil
	})
	return draft, err
}

// SaveDraft replaces the in-progress post.
func (s *Service) SaveDraft(ctx context.Context, actor Actor, draft Draft) (Draft, error) {
	var saved Draft
	err := s.withScope(opDraft, actor, func(stores scopeStores) error {
		var saveErr error
		saved, saveErr = stores.drafts.Save(ctx, draft)
		if saveErr != nil {
			return newServiceError(opDraft, reasonBadFlair, saveErr)
		}
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	s.publish(actor.ScopeID, ChangeDraft)
	return saved, nil
}

// ClearDraft resets the in-progress post.
func (s *Service) ClearDraft(ctx context.Context, actor Actor) (Draft, error) {
	var blank Draft
	err := s.withScope(opDraft, actor, func(stores scopeStores) error {
		blank = stores.drafts.Clear(ctx)
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	s.publish(actor.ScopeID, ChangeDraft)
	return blank, nil
}

// ShareText renders the text copied when a post is shared.
func (s *Service) ShareText(ctx context.Context, actor Actor, id PostID) (string, error) {
	var text string
	err := s.withScope(opShare, actor, func(stores scopeStores) error {
		post, ok := stores.posts.Get(ctx, id)
		if !ok {
			return newServiceError(opShare, reasonNotFound, ErrPostNotFound)
		}
		text = ShareText(post)
		return nil
	})
	return text, err
}

// ShareText formats a post for the clipboard.
func ShareText(post Post) string {
	text := "MannMitra Community: " + post.Title
	if post.Body != "" {
		text += " — " + post.Body
	}
	return text
}

func (s *Service) publish(scopeID string, kind ChangeKind, postIDs ...PostID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ChangeEvent{
		ScopeID:   scopeID,
		Kind:      kind,
		PostIDs:   postIDs,
		Timestamp: s.clock().UTC(),
	})
}

func (s *Service) logError(operation string, err error, fields ...zap.Field) {
	attrs := []zap.Field{zap.String("operation", operation)}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		attrs = append(attrs, zap.String("code", serviceErr.Code()))
	}
	attrs = append(attrs, zap.Error(err))
	attrs = append(attrs, fields...)
	s.logger.Warn("community service error", attrs...)
}
