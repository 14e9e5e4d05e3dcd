package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-dashboard/internal/ai"
	"whatsapp-dashboard/internal/models"
	"whatsapp-dashboard/internal/reconcile"
	"whatsapp-dashboard/internal/whatsapp"
)

// AdminHandler serves the dashboard's diagnostics endpoints: one-shot
// checks for the AI provider, the WhatsApp connection and the full
// webhook ingestion flow.
type AdminHandler struct {
	DB        *gorm.DB
	Generator reconcile.ReplyGenerator
	Engine    *reconcile.Engine
	Senders   reconcile.SenderFactory
	PhoneInfo func(phoneNumberID, accessToken string) (interface{}, error)
}

func NewAdminHandler(db *gorm.DB, generator reconcile.ReplyGenerator, engine *reconcile.Engine, senders reconcile.SenderFactory) *AdminHandler {
	return &AdminHandler{
		DB:        db,
		Generator: generator,
		Engine:    engine,
		Senders:   senders,
		PhoneInfo: func(phoneNumberID, accessToken string) (interface{}, error) {
			return whatsapp.NewClient(phoneNumberID, accessToken).FetchPhoneInfo()
		},
	}
}

type testAIRequest struct {
	Message string `json:"message" binding:"required"`
}

// TestAI generates a reply with a fixed persona so operators can check
// provider connectivity and prompt quality.
func (h *AdminHandler) TestAI(c *gin.Context) {
	var req testAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing 'message' in request body"})
		return
	}

	cfg := &ai.AssistantConfig{
		Profile: ai.Profile{
			AgentName:           "Test Assistant",
			AgentRole:           "a helpful assistant",
			BusinessDescription: "A test business",
		},
		Capabilities: ai.Capabilities{AutoRespond: true},
		Tone:         "friendly",
		Language:     "en",
	}

	response, err := h.Generator.GenerateReply(c.Request.Context(), req.Message, nil, cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "error generating AI response",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "AI response generated successfully",
		"response": response,
	})
}

// TestWhatsApp checks platform connectivity by fetching the tenant's
// phone number metadata.
func (h *AdminHandler) TestWhatsApp(c *gin.Context) {
	account, ok := h.tenantAccount(c)
	if !ok {
		return
	}

	info, err := h.PhoneInfo(account.PhoneNumberID, account.AccessToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "error connecting to WhatsApp API",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "WhatsApp API connection successful",
		"phoneData": info,
	})
}

type sendTestMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *AdminHandler) SendTestMessage(c *gin.Context) {
	var req sendTestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing 'to' or 'message' in request body"})
		return
	}

	account, ok := h.tenantAccount(c)
	if !ok {
		return
	}

	sender := h.Senders(account.PhoneNumberID, account.AccessToken)
	messageID, err := sender.SendTextMessage(req.To, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "error sending message via WhatsApp API",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Test message sent successfully",
		"messageId": messageID,
	})
}

// TestWebhook synthesizes the canonical inbound payload for the
// tenant's account and runs it through the full reconciliation flow.
func (h *AdminHandler) TestWebhook(c *gin.Context) {
	account, ok := h.tenantAccount(c)
	if !ok {
		return
	}

	event := reconcile.InboundMessage{
		PhoneNumberID: account.PhoneNumberID,
		From:          "1234567890",
		ProfileName:   "Test Contact",
		MessageID:     fmt.Sprintf("test_msg_%s", uuid.NewString()),
		Timestamp:     time.Now(),
		Type:          "text",
		Content:       "Test message for debugging",
	}

	result, err := h.Engine.ProcessMessage(c.Request.Context(), event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "test webhook processing failed",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{
		"success": true,
		"result":  result,
	}
	switch {
	case result.AutoResponded:
		resp["message"] = "Test webhook processed successfully, AI response sent"
	case result.ReplyErr != nil:
		resp["message"] = "Test webhook processed but AI response failed"
		resp["error"] = result.ReplyErr.Error()
	default:
		resp["message"] = "Test webhook processed, AI auto-response skipped"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) tenantAccount(c *gin.Context) (*models.WhatsAppAccount, bool) {
	var account models.WhatsAppAccount
	err := h.DB.Where("tenant_id = ?", TenantID(c)).Take(&account).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no whatsapp account configured for tenant"})
		return nil, false
	}
	return &account, true
}
