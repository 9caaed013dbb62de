package widget

import (
	"errors"
	"net/http"
	"strings"

	"tikozap-platform/internal/calls"
	"tikozap-platform/internal/conversation"
	"tikozap-platform/internal/origin"
	"tikozap-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers serves the public, unauthenticated widget surface. Routes using
// these handlers sit behind permissive CORS (the embed script fetches
// cross-origin by design) plus the rate limiter; trust comes from the
// widget's public key and the tenant's origin allowlist, not from sessions.
type Handlers struct {
	Widgets       Repository
	Calls         *calls.Service
	Conversations *conversation.Service
}

// GetConfig returns the widget display configuration for an embed key.
// Missing and disabled widgets are indistinguishable to the caller.
func (h *Handlers) GetConfig(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	w, err := h.Widgets.GetByPublicKey(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "widget not found"})
			return
		}
		logger.FromGin(c).Error("widget lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !w.Enabled {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": w.PublicKey, "config": w.Config})
}

type demoRequest struct {
	Key            string `json:"key" binding:"required"`
	CallbackNumber string `json:"callback_number" binding:"required"`
	Notes          string `json:"notes"`
}

// RequestDemo captures a callback request from the widget's demo form.
// The requesting page's host must match the tenant's origin allowlist.
func (h *Handlers) RequestDemo(c *gin.Context) {
	var req demoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "key and callback_number are required"})
		return
	}

	ctx := c.Request.Context()
	w, err := h.Widgets.GetByPublicKey(ctx, strings.TrimSpace(req.Key))
	if err != nil || !w.Enabled {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	if !origin.RequestAllowed(c.Request, w.AllowedDomains) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	conv, err := h.Conversations.Create(ctx, w.WorkspaceID, "widget_demo")
	if err != nil {
		logger.FromGin(c).Error("demo conversation create failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	it, err := h.Calls.CreateAnswerMachineItem(ctx, calls.CreateItemRequest{
		WorkspaceID:    w.WorkspaceID,
		ConversationID: conv.ID,
		Type:           calls.ItemTypeCallback,
		Reason:         "fallback",
		CallbackNumber: strings.TrimSpace(req.CallbackNumber),
		CallbackNotes:  strings.TrimSpace(req.Notes),
	})
	if err != nil {
		logger.FromGin(c).Error("demo item create failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "item_id": it.ID})
}
