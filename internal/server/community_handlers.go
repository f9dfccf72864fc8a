package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mannmitra/backend/internal/community"
)

var errInvalidPage = errors.New("page must be a positive integer")

type postPayload struct {
	ID        community.PostID `json:"id"`
	Author    string           `json:"author"`
	Flair     community.Flair  `json:"flair"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Votes     int              `json:"votes"`
	CreatedAt int64            `json:"createdAt"`
}

type feedItemPayload struct {
	postPayload
	Alias        string `json:"alias"`
	CommentCount int    `json:"commentCount"`
	Saved        bool   `json:"saved"`
	CanDelete    bool   `json:"canDelete"`
}

type feedFilterPayload struct {
	Tab      community.Tab      `json:"tab"`
	Flairs   []community.Flair  `json:"flairs"`
	Search   string             `json:"search"`
	MineOnly bool               `json:"mine"`
	Sort     community.SortMode `json:"sort"`
	Page     int                `json:"page"`
}

type feedResponsePayload struct {
	Items    []feedItemPayload `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	HasMore  bool              `json:"hasMore"`
	Filter   feedFilterPayload `json:"filter"`
}

type draftPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Flair string `json:"flair"`
}

type commentRequestPayload struct {
	Text string `json:"text"`
}

func newPostPayload(post community.Post) postPayload {
	return postPayload{
		ID:        post.ID,
		Author:    post.Author,
		Flair:     post.Flair,
		Title:     post.Title,
		Body:      post.Body,
		Votes:     post.Votes,
		CreatedAt: post.CreatedAtMillis,
	}
}

// parseFilter builds a feed filter from tab, flair (repeatable), q, mine,
// sort and page query parameters.
func parseFilter(c *gin.Context) (community.Filter, error) {
	filter := community.DefaultFilter()

	tab, err := community.ParseTab(c.Query("tab"))
	if err != nil {
		return community.Filter{}, err
	}
	filter = filter.WithTab(tab)

	for _, raw := range c.QueryArray("flair") {
		flair, err := community.ParseFlair(raw)
		if err != nil {
			return community.Filter{}, err
		}
		if !slices.Contains(filter.Flairs, flair) {
			filter = filter.ToggleFlair(flair)
		}
	}

	filter = filter.WithSearch(c.Query("q"))

	if raw := c.Query("mine"); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			return community.Filter{}, err
		}
		filter = filter.WithMineOnly(mine)
	}

	mode, err := community.ParseSortMode(c.Query("sort"))
	if err != nil {
		return community.Filter{}, err
	}
	filter = filter.WithSort(mode)

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return community.Filter{}, errInvalidPage
		}
		filter.Page = page
	}
	return filter, nil
}

func parsePostID(c *gin.Context) (community.PostID, bool) {
	id, err := strconv.ParseInt(c.Param("postID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_post_id"})
		return 0, false
	}
	return community.PostID(id), true
}

func (h *httpHandler) handleFeed(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_filter"})
		return
	}
	feed, err := h.community.Feed(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}

	response := feedResponsePayload{
		Items:    make([]feedItemPayload, 0, len(feed.Items)),
		Total:    feed.Total,
		Page:     feed.Page,
		PageSize: feed.PageSize,
		HasMore:  feed.HasMore,
		Filter: feedFilterPayload{
			Tab:      feed.Filter.Tab,
			Flairs:   append([]community.Flair{}, feed.Filter.Flairs...),
			Search:   feed.Filter.Search,
			MineOnly: feed.Filter.MineOnly,
			Sort:     feed.Filter.Sort,
			Page:     feed.Filter.Page,
		},
	}
	for _, item := range feed.Items {
		response.Items = append(response.Items, feedItemPayload{
			postPayload:  newPostPayload(item.Post),
			Alias:        item.Alias,
			CommentCount: item.CommentCount,
			Saved:        item.Saved,
			CanDelete:    item.CanDelete,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleCreatePost(c *gin.Context) {
	var request draftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	post, created, err := h.community.CreatePost(c.Request.Context(), actorFrom(c), community.Draft{
		Title: request.Title,
		Body:  request.Body,
		Flair: community.Flair(request.Flair),
	})
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "post": newPostPayload(post)})
}

func (h *httpHandler) handleDeletePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	if err := h.community.DeletePost(c.Request.Context(), actorFrom(c), id); err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpvote(c *gin.Context) {
	h.handleVote(c, h.community.Upvote)
}

func (h *httpHandler) handleDownvote(c *gin.Context) {
	h.handleVote(c, h.community.Downvote)
}

func (h *httpHandler) handleVote(c *gin.Context, vote func(ctx context.Context, actor community.Actor, id community.PostID) (community.Post, error)) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	post, err := vote(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": newPostPayload(post)})
}

func (h *httpHandler) handleToggleSaved(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	saved, err := h.community.ToggleSaved(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "saved": saved})
}

func (h *httpHandler) handleShare(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	text, err := h.community.ShareText(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func (h *httpHandler) handleSavedPosts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}
	posts, err := h.community.SavedPosts(c.Request.Context(), actorFrom(c), limit)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	payload := make([]postPayload, 0, len(posts))
	for _, post := range posts {
		payload = append(payload, newPostPayload(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": payload})
}

func (h *httpHandler) handleComments(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	comments, err := h.community.Comments(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	if comments == nil {
		comments = []community.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	comment, created, err := h.community.AddComment(c.Request.Context(), actorFrom(c), id, request.Text)
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "comment": comment})
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	postID, ok := parsePostID(c)
	if !ok {
		return
	}
	commentID, err := strconv.ParseInt(c.Param("commentID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_comment_id"})
		return
	}
	if err := h.community.DeleteComment(c.Request.Context(), actorFrom(c), postID, community.CommentID(commentID)); err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetDraft(c *gin.Context) {
	draft, err := h.community.Draft(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *httpHandler) handleSaveDraft(c *gin.Context) {
	var request draftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	draft, err := h.community.SaveDraft(c.Request.Context(), actorFrom(c), community.Draft{
		Title: request.Title,
		Body:  request.Body,
		Flair: community.Flair(request.Flair),
	})
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *httpHandler) handleClearDraft(c *gin.Context) {
	draft, err := h.community.ClearDraft(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *httpHandler) handleSubmitDraft(c *gin.Context) {
	post, created, err := h.community.SubmitDraft(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.writeCommunityError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "post": newPostPayload(post)})
}
