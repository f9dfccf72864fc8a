package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type streamEventPayload struct {
	Kind      string  `json:"kind"`
	PostIDs   []int64 `json:"postIds"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
}

// handleCommunityStream serves change notifications of the caller's scope as
// server-sent events until the client disconnects.
func (h *httpHandler) handleCommunityStream(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime_unavailable"})
		return
	}
	scopeID := c.GetString(scopeIDContextKey)
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, scopeID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	h.logger.Debug("community stream opened", zap.String("scope_id", scopeID))
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			postIDs := make([]int64, 0, len(message.PostIDs))
			for _, id := range message.PostIDs {
				postIDs = append(postIDs, int64(id))
			}
			c.SSEvent(message.EventType, streamEventPayload{
				Kind:      string(message.Kind),
				PostIDs:   postIDs,
				Timestamp: message.Timestamp.UTC().Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			return true
		case now := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"timestamp": now.UTC().Format(time.RFC3339), "source": realtimeSourceBackend})
			return true
		}
	})
	h.logger.Debug("community stream closed", zap.String("scope_id", scopeID))
}
