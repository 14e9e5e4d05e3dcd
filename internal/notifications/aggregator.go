package notifications

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"whatsapp-dashboard/internal/database"
	"whatsapp-dashboard/internal/models"
)

// ErrConversationNotFound means the conversation does not exist within
// the tenant. Conversations of other tenants look exactly the same.
var ErrConversationNotFound = errors.New("conversation not found")

const (
	recentMessageLimit       = 10
	pendingConversationLimit = 5
	unreadConversationLimit  = 5
)

// UnreadMessage is one entry in the recent-unread list.
type UnreadMessage struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	ContactName    string    `json:"contact_name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationPreview is a conversation needing attention.
type ConversationPreview struct {
	ID          string    `json:"id"`
	ContactName string    `json:"contact_name"`
	LastMessage string    `json:"last_message"`
	UnreadCount int       `json:"unread_count"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary is the full notification snapshot for one tenant, computed
// fresh on every call.
type Summary struct {
	UnreadMessages         int                   `json:"unread_messages"`
	UnreadConversations    int                   `json:"unread_conversations"`
	PendingAssignments     int                   `json:"pending_assignments"`
	TotalNotifications     int                   `json:"total_notifications"`
	RecentUnreadMessages   []UnreadMessage       `json:"recent_unread_messages"`
	PendingConversations   []ConversationPreview `json:"pending_conversations"`
	UnreadConversationList []ConversationPreview `json:"unread_conversation_list"`
}

// Aggregator serves the dashboard notification polling endpoint.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Summarize computes all counts and bounded lists for a tenant.
func (a *Aggregator) Summarize(tenantID string) (*Summary, error) {
	summary := &Summary{
		RecentUnreadMessages:   []UnreadMessage{},
		PendingConversations:   []ConversationPreview{},
		UnreadConversationList: []ConversationPreview{},
	}

	row, err := database.QueryOne(a.db, `
		SELECT COUNT(*) AS total, COUNT(DISTINCT m.conversation_id) AS conversations
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE c.tenant_id = ? AND m.status != 'read' AND m.direction = 'inbound'`,
		tenantID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		summary.UnreadMessages = asInt(row["total"])
		summary.UnreadConversations = asInt(row["conversations"])
	}

	row, err = database.QueryOne(a.db, `
		SELECT COUNT(*) AS total
		FROM conversations
		WHERE tenant_id = ? AND status = ?`,
		tenantID, models.ConversationPending)
	if err != nil {
		return nil, err
	}
	if row != nil {
		summary.PendingAssignments = asInt(row["total"])
	}

	summary.TotalNotifications = summary.UnreadMessages + summary.PendingAssignments

	rows, err := database.Query(a.db, `
		SELECT m.id AS message_id, m.conversation_id, m.content, m.created_at, ct.name AS contact_name
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		JOIN contacts ct ON c.contact_id = ct.id
		WHERE c.tenant_id = ? AND m.status != 'read' AND m.direction = 'inbound'
		ORDER BY m.created_at DESC
		LIMIT ?`,
		tenantID, recentMessageLimit)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		summary.RecentUnreadMessages = append(summary.RecentUnreadMessages, UnreadMessage{
			MessageID:      asString(r["message_id"]),
			ConversationID: asString(r["conversation_id"]),
			ContactName:    asString(r["contact_name"]),
			Content:        asString(r["content"]),
			CreatedAt:      asTime(r["created_at"]),
		})
	}

	pending, err := a.conversationPreviews(
		tenantID, "c.status = 'pending'", pendingConversationLimit)
	if err != nil {
		return nil, err
	}
	summary.PendingConversations = pending

	unread, err := a.conversationPreviews(
		tenantID, "c.unread_count > 0", unreadConversationLimit)
	if err != nil {
		return nil, err
	}
	summary.UnreadConversationList = unread

	return summary, nil
}

func (a *Aggregator) conversationPreviews(tenantID, condition string, limit int) ([]ConversationPreview, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.last_message, c.unread_count, c.status, c.created_at, ct.name AS contact_name
		FROM conversations c
		JOIN contacts ct ON c.contact_id = ct.id
		WHERE c.tenant_id = ? AND %s
		ORDER BY c.updated_at DESC
		LIMIT ?`, condition)

	rows, err := database.Query(a.db, query, tenantID, limit)
	if err != nil {
		return nil, err
	}

	previews := make([]ConversationPreview, 0, len(rows))
	for _, r := range rows {
		previews = append(previews, ConversationPreview{
			ID:          asString(r["id"]),
			ContactName: asString(r["contact_name"]),
			LastMessage: asString(r["last_message"]),
			UnreadCount: asInt(r["unread_count"]),
			Status:      asString(r["status"]),
			CreatedAt:   asTime(r["created_at"]),
		})
	}
	return previews, nil
}

// MarkMessagesRead flags every inbound message in the conversation as
// read. The conversation must belong to the tenant.
func (a *Aggregator) MarkMessagesRead(tenantID, conversationID string) error {
	if err := a.checkOwnership(tenantID, conversationID); err != nil {
		return err
	}
	return a.db.Model(&models.Message{}).
		Where("conversation_id = ? AND direction = ?", conversationID, models.DirectionInbound).
		Update("status", models.StatusRead).Error
}

// MarkConversationRead flags the conversation's inbound messages read
// and resets its unread counter.
func (a *Aggregator) MarkConversationRead(tenantID, conversationID string) error {
	if err := a.MarkMessagesRead(tenantID, conversationID); err != nil {
		return err
	}
	return a.db.Model(&models.Conversation{}).
		Where("id = ? AND tenant_id = ?", conversationID, tenantID).
		Update("unread_count", 0).Error
}

func (a *Aggregator) checkOwnership(tenantID, conversationID string) error {
	var count int64
	err := a.db.Model(&models.Conversation{}).
		Where("id = ? AND tenant_id = ?", conversationID, tenantID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Raw-row values vary by driver: counts arrive as int64 on postgres
// and sqlite, as strings from some proxies.
func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	case *interface{}:
		if n != nil {
			return asInt(*n)
		}
		return 0
	default:
		return 0
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	if p, ok := v.(*interface{}); ok && p != nil {
		return asString(*p)
	}
	return ""
}

func asTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}
