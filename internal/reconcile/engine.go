package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-dashboard/internal/ai"
	"whatsapp-dashboard/internal/models"
)

// ErrAccountNotFound means the event's phone_number_id maps to no
// tenant; the event is rejected with no state created.
var ErrAccountNotFound = errors.New("no whatsapp account found for phone number id")

// InboundMessage is one platform message flattened out of the webhook
// envelope.
type InboundMessage struct {
	PhoneNumberID string
	From          string
	ProfileName   string
	MessageID     string
	Timestamp     time.Time
	Type          string
	Content       string
}

// Gates records each auto-response condition separately so a skipped
// response can say which gate failed.
type Gates struct {
	HasAssistant  bool `json:"has_assistant"`
	AutoRespond   bool `json:"auto_respond_enabled"`
	BusinessHours bool `json:"business_hours"`
	TextMessage   bool `json:"text_message"`
	HasContent    bool `json:"has_content"`
}

func (g Gates) AllOpen() bool {
	return g.HasAssistant && g.AutoRespond && g.BusinessHours && g.TextMessage && g.HasContent
}

// Result is the outcome of processing one inbound message. ReplyErr is
// set when ingestion succeeded but the auto-response failed; that is a
// partial success, not an error.
type Result struct {
	TenantID       string `json:"tenant_id"`
	ContactID      string `json:"contact_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Gates          Gates  `json:"gates"`
	AutoResponded  bool   `json:"auto_responded"`
	Reply          string `json:"reply,omitempty"`
	ReplyErr       error  `json:"-"`
}

// ReplyGenerator is the AI provider surface the engine needs.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, message string, history []ai.Turn, cfg *ai.AssistantConfig) (string, error)
}

// TextSender sends one outbound text message for a specific account.
type TextSender interface {
	SendTextMessage(to, text string) (string, error)
}

// SenderFactory builds a sender for the account credentials resolved
// from the inbound event.
type SenderFactory func(phoneNumberID, accessToken string) TextSender

// EventPublisher receives a tenant-scoped event after each ingested
// message. Used to push inbox updates to connected dashboards.
type EventPublisher interface {
	Publish(tenantID, eventType string, data interface{})
}

// Engine maps one inbound platform event onto durable
// contact/conversation/message state and layers best-effort
// auto-response on top.
type Engine struct {
	db        *gorm.DB
	generator ReplyGenerator
	senders   SenderFactory
	publisher EventPublisher
	now       func() time.Time
}

func NewEngine(db *gorm.DB, generator ReplyGenerator, senders SenderFactory) *Engine {
	return &Engine{
		db:        db,
		generator: generator,
		senders:   senders,
		now:       time.Now,
	}
}

// WithPublisher attaches an event publisher for dashboard push updates.
func (e *Engine) WithPublisher(p EventPublisher) *Engine {
	e.publisher = p
	return e
}

// WithClock overrides the engine's clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ProcessMessage runs the full reconciliation flow for one inbound
// message. Ingestion (steps 1-6) is atomic; the auto-response sub-flow
// commits independently and is allowed to fail without rollback.
func (e *Engine) ProcessMessage(ctx context.Context, event InboundMessage) (*Result, error) {
	// Step 1: resolve routing. Unknown accounts are terminal.
	var account models.WhatsAppAccount
	err := e.db.Where("phone_number_id = ?", event.PhoneNumberID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "looking up whatsapp account")
	}

	result := &Result{TenantID: account.TenantID}

	logger := log.WithFields(log.Fields{
		"tenant_id": account.TenantID,
		"from":      event.From,
	})

	var conversation models.Conversation
	err = e.db.Transaction(func(tx *gorm.DB) error {
		// Step 2: resolve or create the contact.
		contact, err := e.findOrCreateContact(tx, account.TenantID, event)
		if err != nil {
			return err
		}
		result.ContactID = contact.ID

		// Step 3: resolve or create the conversation.
		conv, err := e.findOrCreateConversation(tx, &account, contact.ID)
		if err != nil {
			return err
		}
		conversation = *conv
		result.ConversationID = conv.ID

		// Step 4: persist the inbound message.
		msg := models.Message{
			ConversationID:    conv.ID,
			Direction:         models.DirectionInbound,
			Type:              event.Type,
			Content:           event.Content,
			WhatsAppMessageID: event.MessageID,
			Status:            models.StatusDelivered,
			SentAt:            event.Timestamp,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return errors.Wrap(err, "storing inbound message")
		}
		result.MessageID = msg.ID

		// Step 5: update the conversation summary.
		err = tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
			"last_message":      event.Content,
			"last_message_at":   event.Timestamp,
			"last_message_type": event.Type,
			"unread_count":      gorm.Expr("unread_count + 1"),
			"updated_at":        e.now(),
		}).Error
		if err != nil {
			return errors.Wrap(err, "updating conversation summary")
		}

		// Step 6: touch the contact.
		err = tx.Model(&models.Contact{}).Where("id = ?", contact.ID).Updates(map[string]interface{}{
			"last_contacted_at": e.now(),
			"updated_at":        e.now(),
		}).Error
		if err != nil {
			return errors.Wrap(err, "touching contact")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger = logger.WithField("conversation_id", result.ConversationID)
	logger.Info("Inbound message ingested")

	if e.publisher != nil {
		e.publisher.Publish(account.TenantID, "new_message", map[string]interface{}{
			"conversation_id": result.ConversationID,
			"message_id":      result.MessageID,
			"content":         event.Content,
			"type":            event.Type,
		})
	}

	// Steps 7-9: best-effort auto-response. Never undoes the ingest.
	e.autoRespond(ctx, &account, &conversation, event, result, logger)
	return result, nil
}

func (e *Engine) findOrCreateContact(tx *gorm.DB, tenantID string, event InboundMessage) (*models.Contact, error) {
	name := event.ProfileName
	if name == "" {
		name = "Unknown"
	}

	// Upsert against the (tenant_id, phone) unique index so two
	// near-simultaneous first messages cannot both insert.
	contact := models.Contact{
		TenantID: tenantID,
		Phone:    event.From,
		Name:     name,
		Source:   "whatsapp",
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "phone"}},
		DoNothing: true,
	}).Create(&contact).Error
	if err != nil {
		return nil, errors.Wrap(err, "creating contact")
	}

	// Re-select: on conflict the insert returned no row.
	var existing models.Contact
	if err := tx.Where("tenant_id = ? AND phone = ?", tenantID, event.From).Take(&existing).Error; err != nil {
		return nil, errors.Wrap(err, "loading contact")
	}
	return &existing, nil
}

func (e *Engine) findOrCreateConversation(tx *gorm.DB, account *models.WhatsAppAccount, contactID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := tx.Where("tenant_id = ? AND contact_id = ?", account.TenantID, contactID).
		Order("created_at DESC").
		Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conv = models.Conversation{
			TenantID:          account.TenantID,
			ContactID:         contactID,
			WhatsAppAccountID: account.ID,
			Status:            models.ConversationOpen,
		}
		if err := tx.Create(&conv).Error; err != nil {
			return nil, errors.Wrap(err, "creating conversation")
		}
		return &conv, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading conversation")
	}

	// A resolved or pending conversation reopens on any new inbound
	// message; nothing lands in a dead thread.
	if conv.Status != models.ConversationOpen {
		err = tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
			"status":     models.ConversationOpen,
			"updated_at": e.now(),
		}).Error
		if err != nil {
			return nil, errors.Wrap(err, "reopening conversation")
		}
		conv.Status = models.ConversationOpen
	}
	return &conv, nil
}

func (e *Engine) autoRespond(ctx context.Context, account *models.WhatsAppAccount, conversation *models.Conversation, event InboundMessage, result *Result, logger *log.Entry) {
	var assistant models.AIAssistant
	var cfg *ai.AssistantConfig
	err := e.db.Where("tenant_id = ? AND is_default = ?", account.TenantID, true).Take(&assistant).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No default assistant simply disables auto-response.
	case err != nil:
		logger.WithError(err).Error("Failed to load default assistant")
	default:
		result.Gates.HasAssistant = true
		cfg = ai.ConfigFromAssistant(&assistant)
	}

	result.Gates.AutoRespond = ai.ShouldAutoRespond(cfg)
	timezone := ""
	var hours *ai.BusinessHours
	if cfg != nil {
		timezone = cfg.Profile.Timezone
		hours = cfg.BusinessHours
	}
	result.Gates.BusinessHours = ai.WithinBusinessHours(e.now(), timezone, hours)
	result.Gates.TextMessage = event.Type == "text"
	result.Gates.HasContent = event.Content != ""

	if !result.Gates.AllOpen() {
		logger.WithFields(log.Fields{
			"has_assistant":  result.Gates.HasAssistant,
			"auto_respond":   result.Gates.AutoRespond,
			"business_hours": result.Gates.BusinessHours,
			"text_message":   result.Gates.TextMessage,
			"has_content":    result.Gates.HasContent,
		}).Info("Auto-response skipped")
		return
	}

	reply, err := e.sendAutoReply(ctx, account, conversation, event, cfg)
	if err != nil {
		result.ReplyErr = err
		logger.WithError(err).Warn("Auto-response failed, inbound message kept")
		return
	}

	result.AutoResponded = true
	result.Reply = reply
	logger.Info("AI auto-response sent")
}

func (e *Engine) sendAutoReply(ctx context.Context, account *models.WhatsAppAccount, conversation *models.Conversation, event InboundMessage, cfg *ai.AssistantConfig) (string, error) {
	// Last 5 messages, reversed into chronological order, then the
	// just-received message as the final user turn.
	var recent []models.Message
	err := e.db.Where("conversation_id = ?", conversation.ID).
		Order("sent_at DESC").
		Limit(5).
		Find(&recent).Error
	if err != nil {
		return "", errors.Wrap(err, "loading conversation history")
	}

	history := make([]ai.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, ai.Turn{
			Role:    ai.RoleForDirection(recent[i].Direction),
			Content: recent[i].Content,
		})
	}

	reply, err := e.generator.GenerateReply(ctx, event.Content, history, cfg)
	if err != nil {
		return "", err
	}

	sender := e.senders(account.PhoneNumberID, account.AccessToken)
	messageID, err := sender.SendTextMessage(event.From, reply)
	if err != nil {
		return "", err
	}

	now := e.now()
	outbound := models.Message{
		ConversationID:    conversation.ID,
		Direction:         models.DirectionOutbound,
		Type:              "text",
		Content:           reply,
		WhatsAppMessageID: messageID,
		Status:            models.StatusSent,
		AIGenerated:       true,
		SentAt:            now,
	}
	if err := e.db.Create(&outbound).Error; err != nil {
		return "", errors.Wrap(err, "storing outbound message")
	}

	err = e.db.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Updates(map[string]interface{}{
		"last_message":      reply,
		"last_message_at":   now,
		"last_message_type": "text",
		"updated_at":        now,
	}).Error
	if err != nil {
		return "", errors.Wrap(err, "updating conversation summary")
	}

	return reply, nil
}

// UpdateMessageStatus applies a platform delivery status callback to a
// previously sent message, matched by its platform id.
func (e *Engine) UpdateMessageStatus(whatsappMessageID, status string) error {
	return e.db.Model(&models.Message{}).
		Where("whatsapp_message_id = ?", whatsappMessageID).
		Update("status", status).Error
}
