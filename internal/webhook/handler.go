package webhook

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"whatsapp-dashboard/internal/config"
	"whatsapp-dashboard/internal/reconcile"
	"whatsapp-dashboard/pkg/models"
)

type Handler struct {
	Config *config.Config
	Engine *reconcile.Engine
}

func NewHandler(cfg *config.Config, engine *reconcile.Engine) *Handler {
	return &Handler{Config: cfg, Engine: engine}
}

// VerifyWebhook answers the platform's subscription handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode == "subscribe" && token == h.Config.VerifyToken {
		log.Info("Webhook verified successfully")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// HandleEvent ingests inbound messages and delivery status callbacks.
// It always answers 200 for well-formed payloads so the platform does
// not redeliver; per-message outcomes are logged.
func (h *Handler) HandleEvent(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.WithError(err).Warn("Invalid webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			h.processChange(c, change.Value)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) processChange(c *gin.Context, value models.Value) {
	profileName := ""
	if len(value.Contacts) > 0 {
		profileName = value.Contacts[0].Profile.Name
	}

	for _, message := range value.Messages {
		event := reconcile.InboundMessage{
			PhoneNumberID: value.Metadata.PhoneNumberID,
			From:          message.From,
			ProfileName:   profileName,
			MessageID:     message.ID,
			Timestamp:     parseTimestamp(message.Timestamp),
			Type:          message.Type,
			Content:       messageContent(message),
		}

		result, err := h.Engine.ProcessMessage(c.Request.Context(), event)
		switch {
		case errors.Is(err, reconcile.ErrAccountNotFound):
			log.WithField("phone_number_id", value.Metadata.PhoneNumberID).
				Warn("No WhatsApp account for inbound message")
		case err != nil:
			log.WithError(err).WithField("message_id", message.ID).
				Error("Failed to process inbound message")
		default:
			log.WithFields(log.Fields{
				"message_id":     message.ID,
				"auto_responded": result.AutoResponded,
			}).Info("Webhook message processed")
		}
	}

	for _, status := range value.Statuses {
		if err := h.Engine.UpdateMessageStatus(status.ID, status.Status); err != nil {
			log.WithError(err).WithField("message_id", status.ID).
				Error("Failed to apply status update")
		}
	}
}

func messageContent(message models.IncomingMessage) string {
	if message.Type == "text" && message.Text != nil {
		return message.Text.Body
	}
	if message.Type != "text" {
		return "[" + message.Type + "]"
	}
	return ""
}

func parseTimestamp(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
