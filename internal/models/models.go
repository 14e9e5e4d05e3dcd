package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation statuses.
const (
	ConversationOpen     = "open"
	ConversationPending  = "pending"
	ConversationResolved = "resolved"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message delivery statuses. Platform status callbacks move a message
// through sent -> delivered -> read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Tenant is the isolation boundary; every other entity carries a tenant id.
type Tenant struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// User is a dashboard login belonging to a tenant.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// WhatsAppAccount routes inbound webhook events to a tenant and
// authenticates outbound sends for it.
type WhatsAppAccount struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	PhoneNumberID      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"phone_number_id"`
	AccessToken        string    `gorm:"type:text;not null" json:"-"`
	DisplayPhoneNumber string    `gorm:"type:varchar(32)" json:"display_phone_number"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WhatsAppAccount) TableName() string {
	return "whatsapp_accounts"
}

func (a *WhatsAppAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Contact is identified by phone number, unique within a tenant.
type Contact struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        string     `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_tenant_phone" json:"tenant_id"`
	Phone           string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_contacts_tenant_phone" json:"phone"`
	Name            string     `gorm:"type:varchar(255)" json:"name"`
	Source          string     `gorm:"type:varchar(50)" json:"source"` // whatsapp, manual
	LastContactedAt *time.Time `json:"last_contacted_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Conversation is a message thread between a tenant and a contact. The
// last_message* and unread_count columns are denormalized for fast list
// rendering and are updated on every new message.
type Conversation struct {
	ID                string     `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          string     `gorm:"type:uuid;index;not null" json:"tenant_id"`
	ContactID         string     `gorm:"type:uuid;index;not null" json:"contact_id"`
	WhatsAppAccountID string     `gorm:"type:uuid;not null" json:"whatsapp_account_id"`
	Status            string     `gorm:"type:varchar(20);default:'open'" json:"status"`
	LastMessage       string     `gorm:"type:text" json:"last_message"`
	LastMessageAt     *time.Time `json:"last_message_at"`
	LastMessageType   string     `gorm:"type:varchar(50)" json:"last_message_type"`
	UnreadCount       int        `gorm:"default:0" json:"unread_count"`
	Contact           *Contact   `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Message is immutable once created except for delivery status transitions.
type Message struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID    string    `gorm:"type:uuid;index;not null" json:"conversation_id"`
	Direction         string    `gorm:"type:varchar(10);not null" json:"direction"`
	Type              string    `gorm:"type:varchar(50)" json:"type"`
	Content           string    `gorm:"type:text" json:"content"`
	WhatsAppMessageID string    `gorm:"column:whatsapp_message_id;type:varchar(255);index" json:"whatsapp_message_id"`
	Status            string    `gorm:"type:varchar(20)" json:"status"`
	AIGenerated       bool      `gorm:"default:false" json:"ai_generated"`
	SentAt            time.Time `json:"sent_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// AIAssistant holds a tenant's auto-reply persona. At most one default
// assistant drives unattended auto-response per tenant. Config is a
// free-form JSON blob (capabilities, business hours, tone, language).
type AIAssistant struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	SystemPrompt string    `gorm:"type:text" json:"system_prompt"`
	Model        string    `gorm:"type:varchar(100)" json:"model"`
	Temperature  float64   `gorm:"default:0.7" json:"temperature"`
	MaxTokens    int       `gorm:"default:500" json:"max_tokens"`
	IsDefault    bool      `gorm:"default:false" json:"is_default"`
	Config       string    `gorm:"type:text" json:"config"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AIAssistant) TableName() string {
	return "ai_assistants"
}

func (a *AIAssistant) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// QuickReply is a canned response selectable from the inbox composer.
type QuickReply struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Shortcut  string    `gorm:"type:varchar(50)" json:"shortcut"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (QuickReply) TableName() string {
	return "quick_replies"
}

func (q *QuickReply) BeforeCreate(*gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
