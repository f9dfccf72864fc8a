package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mannmitra/backend/internal/community"
	"github.com/mannmitra/backend/internal/companions"
	"github.com/mannmitra/backend/internal/contact"
	"github.com/mannmitra/backend/internal/journal"
	"github.com/mannmitra/backend/internal/profile"
	"github.com/mannmitra/backend/internal/scope"
	"github.com/mannmitra/backend/internal/screening"
	"go.uber.org/zap"
)

const (
	scopeIDContextKey = "mannmitra_scope_id"
	userIDContextKey  = "mannmitra_user_id"
)

var (
	errMissingScopeTokens     = errors.New("scope token manager dependency required")
	errMissingCommunity       = errors.New("community service dependency required")
	errMissingScreening       = errors.New("screening catalog dependency required")
	errMissingJournal         = errors.New("journal dependency required")
	errMissingProfiles        = errors.New("profile store dependency required")
	errMissingInbox           = errors.New("contact inbox dependency required")
	errMissingCompanions      = errors.New("companions catalog dependency required")
	errMissingStorage         = errors.New("scope storage dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
	defaultHeartbeatInterval  = 25 * time.Second
	defaultAllowedOriginsList = []string{"*"}
)

type ScopeTokenManager interface {
	Issue(ctx context.Context) (scope.Grant, error)
	Refresh(ctx context.Context, token string) (scope.Grant, error)
	Validate(token string) (scope.Identity, error)
}

// ScopeStorage erases everything persisted for a scope.
type ScopeStorage interface {
	ForgetScope(ctx context.Context, scopeID string) (int, error)
}

type Dependencies struct {
	ScopeTokens       ScopeTokenManager
	Storage           ScopeStorage
	Community         *community.Service
	Screening         *screening.Catalog
	Journal           *journal.Journal
	Profiles          *profile.Store
	Contact           *contact.Inbox
	Companions        *companions.Catalog
	Realtime          *RealtimeDispatcher
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	switch {
	case deps.ScopeTokens == nil:
		return nil, errMissingScopeTokens
	case deps.Community == nil:
		return nil, errMissingCommunity
	case deps.Screening == nil:
		return nil, errMissingScreening
	case deps.Journal == nil:
		return nil, errMissingJournal
	case deps.Profiles == nil:
		return nil, errMissingProfiles
	case deps.Contact == nil:
		return nil, errMissingInbox
	case deps.Companions == nil:
		return nil, errMissingCompanions
	case deps.Storage == nil:
		return nil, errMissingStorage
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddlewareFor(deps.AllowedOrigins))

	handler := &httpHandler{
		tokens:     deps.ScopeTokens,
		storage:    deps.Storage,
		community:  deps.Community,
		screening:  deps.Screening,
		journal:    deps.Journal,
		profiles:   deps.Profiles,
		inbox:      deps.Contact,
		companions: deps.Companions,
		realtime:   deps.Realtime,
		heartbeat:  heartbeat,
		logger:     logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/scopes", handler.handleIssueScope)
	router.GET("/screenings", handler.handleListScreenings)
	router.GET("/screenings/:instrument", handler.handleGetScreening)
	router.POST("/screenings/:instrument/score", handler.handleScoreScreening)
	router.GET("/companions", handler.handleListCompanions)
	router.GET("/companions/:slug", handler.handleGetCompanion)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/scopes/refresh", handler.handleRefreshScope)
	protected.DELETE("/scopes", handler.handleForgetScope)

	communityRoutes := protected.Group("/community")
	communityRoutes.GET("/posts", handler.handleFeed)
	communityRoutes.POST("/posts", handler.handleCreatePost)
	communityRoutes.DELETE("/posts/:postID", handler.handleDeletePost)
	communityRoutes.POST("/posts/:postID/upvote", handler.handleUpvote)
	communityRoutes.POST("/posts/:postID/downvote", handler.handleDownvote)
	communityRoutes.POST("/posts/:postID/save", handler.handleToggleSaved)
	communityRoutes.GET("/posts/:postID/share", handler.handleShare)
	communityRoutes.GET("/posts/:postID/comments", handler.handleComments)
	communityRoutes.POST("/posts/:postID/comments", handler.handleAddComment)
	communityRoutes.DELETE("/posts/:postID/comments/:commentID", handler.handleDeleteComment)
	communityRoutes.GET("/saved", handler.handleSavedPosts)
	communityRoutes.GET("/draft", handler.handleGetDraft)
	communityRoutes.PUT("/draft", handler.handleSaveDraft)
	communityRoutes.DELETE("/draft", handler.handleClearDraft)
	communityRoutes.POST("/draft/submit", handler.handleSubmitDraft)
	communityRoutes.GET("/stream", handler.handleCommunityStream)

	protected.GET("/journal", handler.handleListJournal)
	protected.POST("/journal", handler.handleSaveJournal)
	protected.DELETE("/journal", handler.handleClearJournal)
	protected.DELETE("/journal/:entryID", handler.handleDeleteJournal)

	protected.GET("/profile", handler.handleGetProfile)
	protected.PUT("/profile", handler.handleSaveProfile)
	protected.DELETE("/profile", handler.handleResetProfile)

	protected.GET("/contact", handler.handleListContact)
	protected.POST("/contact", handler.handleSubmitContact)

	return router, nil
}

func corsMiddlewareFor(origins []string) gin.HandlerFunc {
	return cors.New(corsConfig(origins))
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = defaultAllowedOriginsList
	}
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}

type httpHandler struct {
	tokens     ScopeTokenManager
	storage    ScopeStorage
	community  *community.Service
	screening  *screening.Catalog
	journal    *journal.Journal
	profiles   *profile.Store
	inbox      *contact.Inbox
	companions *companions.Catalog
	realtime   *RealtimeDispatcher
	heartbeat  time.Duration
	logger     *zap.Logger
}

type scopeResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	ScopeID     string `json:"scope_id"`
	UserID      string `json:"user_id"`
}

func newScopeResponse(grant scope.Grant) scopeResponsePayload {
	return scopeResponsePayload{
		AccessToken: grant.Token,
		ExpiresIn:   grant.ExpiresIn,
		TokenType:   "Bearer",
		ScopeID:     grant.ScopeID,
		UserID:      grant.UserID,
	}
}

func (h *httpHandler) handleIssueScope(c *gin.Context) {
	grant, err := h.tokens.Issue(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to issue scope token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	h.logger.Info("scope opened", zap.String("scope_id", grant.ScopeID))
	c.JSON(http.StatusCreated, newScopeResponse(grant))
}

func (h *httpHandler) handleRefreshScope(c *gin.Context) {
	grant, err := h.tokens.Refresh(c.Request.Context(), requestToken(c))
	if err != nil {
		h.logger.Warn("scope token refresh failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, newScopeResponse(grant))
}

// handleForgetScope erases every document of the caller's scope. The token
// stays valid and addresses an empty scope afterwards.
func (h *httpHandler) handleForgetScope(c *gin.Context) {
	scopeID := c.GetString(scopeIDContextKey)
	removed, err := h.storage.ForgetScope(c.Request.Context(), scopeID)
	if err != nil {
		h.logger.Error("failed to forget scope", zap.String("scope_id", scopeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scope_forget_failed"})
		return
	}
	h.logger.Info("scope forgotten", zap.String("scope_id", scopeID), zap.Int("keys", removed))
	if h.realtime != nil {
		h.realtime.Publish(community.ChangeEvent{ScopeID: scopeID, Kind: community.ChangePosts, Timestamp: time.Now().UTC()})
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// requestToken reads the bearer token, falling back to the access_token
// query parameter for EventSource clients that cannot set headers.
func requestToken(c *gin.Context) string {
	if token := scope.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("access_token"))
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := requestToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	identity, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn("scope token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(scopeIDContextKey, identity.ScopeID)
	c.Set(userIDContextKey, identity.UserID)
	c.Next()
}

func actorFrom(c *gin.Context) community.Actor {
	return community.Actor{ScopeID: c.GetString(scopeIDContextKey), UserID: c.GetString(userIDContextKey)}
}

// writeCommunityError maps service errors onto HTTP statuses, exposing the
// service error code.
func (h *httpHandler) writeCommunityError(c *gin.Context, err error) {
	code := "internal_error"
	var serviceErr *community.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, community.ErrInvalidActor):
		status = http.StatusUnauthorized
	case errors.Is(err, community.ErrPostNotFound), errors.Is(err, community.ErrCommentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, community.ErrNotAuthor):
		status = http.StatusForbidden
	case errors.Is(err, community.ErrInvalidFlair):
		status = http.StatusBadRequest
	default:
		h.logger.Error("community request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}
