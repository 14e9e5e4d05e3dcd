package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"whatsapp-dashboard/internal/notifications"
)

type NotificationHandler struct {
	Aggregator *notifications.Aggregator
}

func NewNotificationHandler(agg *notifications.Aggregator) *NotificationHandler {
	return &NotificationHandler{Aggregator: agg}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	summary, err := h.Aggregator.Summarize(TenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch notifications", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type markReadRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// MarkRead keeps the legacy {type, id} body but routes it onto two
// explicit operations: "message" marks the conversation's inbound
// messages read, "conversation" additionally resets the unread counter.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tenantID := TenantID(c)
	var err error
	switch req.Type {
	case "message":
		err = h.Aggregator.MarkMessagesRead(tenantID, req.ID)
	case "conversation":
		err = h.Aggregator.MarkConversationRead(tenantID, req.ID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "type must be 'message' or 'conversation'"})
		return
	}
	if errors.Is(err, notifications.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark as read", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
