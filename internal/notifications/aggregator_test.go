package notifications

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-dashboard/internal/database"
	"whatsapp-dashboard/internal/models"
)

type workspace struct {
	db     *gorm.DB
	agg    *Aggregator
	tenant models.Tenant
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)

	return &workspace{db: db, agg: NewAggregator(db), tenant: tenant}
}

func (w *workspace) addConversation(t *testing.T, contactName, status string, unread int) models.Conversation {
	t.Helper()
	contact := models.Contact{
		TenantID: w.tenant.ID,
		Phone:    fmt.Sprintf("555%d", time.Now().UnixNano()),
		Name:     contactName,
		Source:   "whatsapp",
	}
	require.NoError(t, w.db.Create(&contact).Error)

	conversation := models.Conversation{
		TenantID:          w.tenant.ID,
		ContactID:         contact.ID,
		WhatsAppAccountID: "acct",
		Status:            status,
		UnreadCount:       unread,
	}
	require.NoError(t, w.db.Create(&conversation).Error)
	return conversation
}

func (w *workspace) addMessage(t *testing.T, conversationID, direction, status, content string) models.Message {
	t.Helper()
	msg := models.Message{
		ConversationID: conversationID,
		Direction:      direction,
		Type:           "text",
		Content:        content,
		Status:         status,
		SentAt:         time.Now(),
	}
	require.NoError(t, w.db.Create(&msg).Error)
	return msg
}

func TestSummarizeEmptyTenant(t *testing.T) {
	w := newWorkspace(t)

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	assert.Zero(t, summary.UnreadMessages)
	assert.Zero(t, summary.UnreadConversations)
	assert.Zero(t, summary.PendingAssignments)
	assert.Zero(t, summary.TotalNotifications)
	// Lists must be empty slices, not nil, so JSON encodes [] not null.
	assert.NotNil(t, summary.RecentUnreadMessages)
	assert.NotNil(t, summary.PendingConversations)
	assert.NotNil(t, summary.UnreadConversationList)
}

func TestSummarizeCounts(t *testing.T) {
	w := newWorkspace(t)

	c1 := w.addConversation(t, "Ada", models.ConversationOpen, 2)
	c2 := w.addConversation(t, "Grace", models.ConversationPending, 1)
	w.addConversation(t, "Linus", models.ConversationResolved, 0)

	w.addMessage(t, c1.ID, models.DirectionInbound, models.StatusDelivered, "first")
	w.addMessage(t, c1.ID, models.DirectionInbound, models.StatusDelivered, "second")
	w.addMessage(t, c2.ID, models.DirectionInbound, models.StatusDelivered, "third")
	// Read and outbound messages never count as unread.
	w.addMessage(t, c1.ID, models.DirectionInbound, models.StatusRead, "already seen")
	w.addMessage(t, c1.ID, models.DirectionOutbound, models.StatusSent, "our reply")

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.UnreadMessages)
	assert.Equal(t, 2, summary.UnreadConversations)
	assert.Equal(t, 1, summary.PendingAssignments)
	assert.Equal(t, 4, summary.TotalNotifications)
}

func TestSummarizeScopedToTenant(t *testing.T) {
	w := newWorkspace(t)

	other := models.Tenant{Name: "Rival"}
	require.NoError(t, w.db.Create(&other).Error)
	otherContact := models.Contact{TenantID: other.ID, Phone: "999", Name: "Eve"}
	require.NoError(t, w.db.Create(&otherContact).Error)
	otherConv := models.Conversation{
		TenantID:          other.ID,
		ContactID:         otherContact.ID,
		WhatsAppAccountID: "acct",
		Status:            models.ConversationPending,
		UnreadCount:       5,
	}
	require.NoError(t, w.db.Create(&otherConv).Error)
	w.addMessage(t, otherConv.ID, models.DirectionInbound, models.StatusDelivered, "secret")

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	assert.Zero(t, summary.UnreadMessages)
	assert.Zero(t, summary.PendingAssignments)
	assert.Empty(t, summary.RecentUnreadMessages)
	assert.Empty(t, summary.UnreadConversationList)
}

func TestSummarizeRecentMessagesCarryContactName(t *testing.T) {
	w := newWorkspace(t)

	conv := w.addConversation(t, "Ada", models.ConversationOpen, 1)
	msg := w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "hello there")

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	require.Len(t, summary.RecentUnreadMessages, 1)
	entry := summary.RecentUnreadMessages[0]
	assert.Equal(t, msg.ID, entry.MessageID)
	assert.Equal(t, conv.ID, entry.ConversationID)
	assert.Equal(t, "Ada", entry.ContactName)
	assert.Equal(t, "hello there", entry.Content)
}

func TestSummarizeListsAreBounded(t *testing.T) {
	w := newWorkspace(t)

	for i := 0; i < 12; i++ {
		conv := w.addConversation(t, fmt.Sprintf("Contact %d", i), models.ConversationPending, 1)
		w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, fmt.Sprintf("note %d", i))
	}

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.UnreadMessages)
	assert.Len(t, summary.RecentUnreadMessages, 10)
	assert.Len(t, summary.PendingConversations, 5)
	assert.Len(t, summary.UnreadConversationList, 5)
}

func TestSummarizeConversationPreviews(t *testing.T) {
	w := newWorkspace(t)

	pending := w.addConversation(t, "Grace", models.ConversationPending, 0)
	require.NoError(t, w.db.Model(&models.Conversation{}).
		Where("id = ?", pending.ID).
		Update("last_message", "can someone take this?").Error)

	unread := w.addConversation(t, "Ada", models.ConversationOpen, 3)

	summary, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)

	require.Len(t, summary.PendingConversations, 1)
	assert.Equal(t, pending.ID, summary.PendingConversations[0].ID)
	assert.Equal(t, "Grace", summary.PendingConversations[0].ContactName)
	assert.Equal(t, "can someone take this?", summary.PendingConversations[0].LastMessage)

	require.Len(t, summary.UnreadConversationList, 1)
	assert.Equal(t, unread.ID, summary.UnreadConversationList[0].ID)
	assert.Equal(t, 3, summary.UnreadConversationList[0].UnreadCount)
}

func TestMarkMessagesRead(t *testing.T) {
	w := newWorkspace(t)

	conv := w.addConversation(t, "Ada", models.ConversationOpen, 2)
	w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "one")
	w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "two")
	outbound := w.addMessage(t, conv.ID, models.DirectionOutbound, models.StatusSent, "reply")

	require.NoError(t, w.agg.MarkMessagesRead(w.tenant.ID, conv.ID))

	var unread int64
	w.db.Model(&models.Message{}).
		Where("conversation_id = ? AND direction = ? AND status != ?", conv.ID, models.DirectionInbound, models.StatusRead).
		Count(&unread)
	assert.Zero(t, unread)

	// Outbound delivery status is owned by platform callbacks, not us.
	var kept models.Message
	require.NoError(t, w.db.Where("id = ?", outbound.ID).Take(&kept).Error)
	assert.Equal(t, models.StatusSent, kept.Status)
}

func TestMarkConversationReadClearsNotifications(t *testing.T) {
	w := newWorkspace(t)

	conv := w.addConversation(t, "Ada", models.ConversationOpen, 2)
	w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "one")
	w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "two")

	before, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, before.UnreadMessages)
	require.Len(t, before.UnreadConversationList, 1)

	require.NoError(t, w.agg.MarkConversationRead(w.tenant.ID, conv.ID))

	after, err := w.agg.Summarize(w.tenant.ID)
	require.NoError(t, err)
	assert.Zero(t, after.UnreadMessages)
	assert.Zero(t, after.UnreadConversations)
	assert.Empty(t, after.RecentUnreadMessages)
	assert.Empty(t, after.UnreadConversationList)

	var refreshed models.Conversation
	require.NoError(t, w.db.Where("id = ?", conv.ID).Take(&refreshed).Error)
	assert.Zero(t, refreshed.UnreadCount)
}

func TestMarkReadRejectsOtherTenantsConversation(t *testing.T) {
	w := newWorkspace(t)

	conv := w.addConversation(t, "Ada", models.ConversationOpen, 3)
	w.addMessage(t, conv.ID, models.DirectionInbound, models.StatusDelivered, "one")

	other := models.Tenant{Name: "Rival"}
	require.NoError(t, w.db.Create(&other).Error)

	err := w.agg.MarkMessagesRead(other.ID, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	err = w.agg.MarkConversationRead(other.ID, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Nothing changed for the owning tenant.
	var msg models.Message
	require.NoError(t, w.db.Where("conversation_id = ?", conv.ID).Take(&msg).Error)
	assert.Equal(t, models.StatusDelivered, msg.Status)

	var refreshed models.Conversation
	require.NoError(t, w.db.Where("id = ?", conv.ID).Take(&refreshed).Error)
	assert.Equal(t, 3, refreshed.UnreadCount)
}
