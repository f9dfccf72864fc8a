package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mannmitra/backend/internal/contact"
	"github.com/mannmitra/backend/internal/journal"
	"github.com/mannmitra/backend/internal/profile"
	"github.com/mannmitra/backend/internal/screening"
	"go.uber.org/zap"
)

type scoreRequestPayload struct {
	Answers []*int `json:"answers"`
}

type journalRequestPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleListScreenings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruments": h.screening.Instruments()})
}

func (h *httpHandler) handleGetScreening(c *gin.Context) {
	instrument, err := h.screening.Instrument(c.Param("instrument"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_instrument"})
		return
	}
	c.JSON(http.StatusOK, instrument)
}

func (h *httpHandler) handleScoreScreening(c *gin.Context) {
	instrument, err := h.screening.Instrument(c.Param("instrument"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_instrument"})
		return
	}
	var request scoreRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	result, err := screening.Score(instrument, request.Answers)
	switch {
	case errors.Is(err, screening.ErrIncompleteAnswers):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "incomplete_answers", "message": "Please answer all questions before submitting."})
		return
	case errors.Is(err, screening.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_answer"})
		return
	case err != nil:
		h.logger.Error("screening score failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleListCompanions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"companions": h.companions.Companions()})
}

// handleGetCompanion answers unknown slugs with the generic persona so chat
// links never dead-end.
func (h *httpHandler) handleGetCompanion(c *gin.Context) {
	companion, known := h.companions.Resolve(c.Param("slug"))
	c.JSON(http.StatusOK, gin.H{"companion": companion, "known": known})
}

func (h *httpHandler) handleListJournal(c *gin.Context) {
	entries, err := h.journal.List(c.Request.Context(), c.GetString(scopeIDContextKey), c.Query("q"))
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *httpHandler) handleSaveJournal(c *gin.Context) {
	var request journalRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	entry, saved, err := h.journal.Save(c.Request.Context(), c.GetString(scopeIDContextKey), request.Text)
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	if !saved {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": true, "entry": entry})
}

func (h *httpHandler) handleDeleteJournal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("entryID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_entry_id"})
		return
	}
	if err := h.journal.Delete(c.Request.Context(), c.GetString(scopeIDContextKey), id); err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleClearJournal(c *gin.Context) {
	if err := h.journal.Clear(c.Request.Context(), c.GetString(scopeIDContextKey)); err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	loaded, err := h.profiles.Load(c.Request.Context(), c.GetString(scopeIDContextKey))
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.JSON(http.StatusOK, loaded)
}

func (h *httpHandler) handleSaveProfile(c *gin.Context) {
	scopeID := c.GetString(scopeIDContextKey)
	current, err := h.profiles.Load(c.Request.Context(), scopeID)
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	// fields absent from the body keep their current values
	if err := c.ShouldBindJSON(&current); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	saved, err := h.profiles.Save(c.Request.Context(), scopeID, current)
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *httpHandler) handleResetProfile(c *gin.Context) {
	scopeID := c.GetString(scopeIDContextKey)
	if err := h.profiles.Reset(c.Request.Context(), scopeID); err != nil {
		h.writeScopedError(c, err)
		return
	}
	h.handleGetProfile(c)
}

func (h *httpHandler) handleSubmitContact(c *gin.Context) {
	var request contact.Submission
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.inbox.Submit(c.Request.Context(), c.GetString(scopeIDContextKey), request)
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *httpHandler) handleListContact(c *gin.Context) {
	messages, err := h.inbox.List(c.Request.Context(), c.GetString(scopeIDContextKey))
	if err != nil {
		h.writeScopedError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// writeScopedError maps the sentinel errors of the per-scope documents.
func (h *httpHandler) writeScopedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, journal.ErrMissingScope), errors.Is(err, profile.ErrMissingScope), errors.Is(err, contact.ErrMissingScope):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, journal.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "entry_not_found"})
	case errors.Is(err, profile.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile", "message": err.Error()})
	case errors.Is(err, contact.ErrIncomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "incomplete_contact", "message": "Please fill your name, email, and message."})
	case errors.Is(err, contact.ErrInvalidEmail), errors.Is(err, contact.ErrInvalidTopic):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_contact", "message": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
