package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"whatsapp-dashboard/internal/models"
	"whatsapp-dashboard/internal/reconcile"
)

type InboxHandler struct {
	DB      *gorm.DB
	Senders reconcile.SenderFactory
}

func NewInboxHandler(db *gorm.DB, senders reconcile.SenderFactory) *InboxHandler {
	return &InboxHandler{DB: db, Senders: senders}
}

func (h *InboxHandler) GetConversations(c *gin.Context) {
	var conversations []models.Conversation
	err := h.DB.Preload("Contact").
		Where("tenant_id = ?", TenantID(c)).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if conversations == nil {
		conversations = []models.Conversation{}
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *InboxHandler) GetMessages(c *gin.Context) {
	conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var messages []models.Message
	err := h.DB.Where("conversation_id = ?", conversation.ID).
		Order("sent_at ASC").
		Find(&messages).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage sends an agent-composed reply on a conversation and
// records it as an outbound message.
func (h *InboxHandler) SendMessage(c *gin.Context) {
	conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var account models.WhatsAppAccount
	if err := h.DB.Where("id = ?", conversation.WhatsAppAccountID).Take(&account).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "conversation has no whatsapp account"})
		return
	}
	var contact models.Contact
	if err := h.DB.Where("id = ?", conversation.ContactID).Take(&contact).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "conversation has no contact"})
		return
	}

	sender := h.Senders(account.PhoneNumberID, account.AccessToken)
	messageID, err := sender.SendTextMessage(contact.Phone, req.Content)
	if err != nil {
		log.WithError(err).Error("Failed to send message")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "failed to send message", "details": err.Error()})
		return
	}

	now := time.Now()
	message := models.Message{
		ConversationID:    conversation.ID,
		Direction:         models.DirectionOutbound,
		Type:              "text",
		Content:           req.Content,
		WhatsAppMessageID: messageID,
		Status:            models.StatusSent,
		SentAt:            now,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	err = h.DB.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Updates(map[string]interface{}{
		"last_message":      req.Content,
		"last_message_at":   now,
		"last_message_type": "text",
		"updated_at":        now,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, message)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open pending resolved"`
}

// UpdateStatus moves a conversation between open, pending and resolved.
func (h *InboxHandler) UpdateStatus(c *gin.Context) {
	conversation, ok := h.loadConversation(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	err := h.DB.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Updates(map[string]interface{}{
		"status":     req.Status,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
}

func (h *InboxHandler) loadConversation(c *gin.Context) (*models.Conversation, bool) {
	var conversation models.Conversation
	err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).Take(&conversation).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
		return nil, false
	}
	return &conversation, true
}
