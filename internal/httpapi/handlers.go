// Package httpapi contains the authenticated dashboard-facing endpoints.
// Handlers stay thin: tenancy comes from the verified token, everything else
// is delegated to internal services.
package httpapi

import (
	"net/http"
	"strconv"

	"tikozap-platform/internal/auth"
	"tikozap-platform/internal/calls"
	"tikozap-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Calls *calls.Service
}

// ListItems returns the tenant's captured voicemail and callback items,
// newest first.
func (h *Handlers) ListItems(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.Calls.ListItems(c.Request.Context(), auth.WorkspaceID(c), limit)
	if err != nil {
		logger.FromGin(c).Error("list items failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if items == nil {
		items = []calls.AnswerMachineItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListCalls returns the tenant's call sessions, newest first.
func (h *Handlers) ListCalls(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.Calls.ListSessions(c.Request.Context(), auth.WorkspaceID(c), limit)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if sessions == nil {
		sessions = []calls.CallSession{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": sessions})
}
