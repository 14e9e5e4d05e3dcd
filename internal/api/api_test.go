package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-dashboard/internal/auth"
	"whatsapp-dashboard/internal/database"
	"whatsapp-dashboard/internal/models"
	"whatsapp-dashboard/internal/notifications"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := auth.NewService("test-secret")

	router := gin.New()
	router.GET("/protected", RequireAuth(svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": TenantID(c)})
	})

	token, err := svc.IssueToken("user-1", "tenant-1")
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "tenant-1")
	})

	t.Run("query parameter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	svc := auth.NewService("test-secret")

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)
	hash, err := svc.HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		TenantID:     tenant.ID,
		Email:        "ada@acme.test",
		PasswordHash: hash,
		Name:         "Ada",
	}).Error)

	router := gin.New()
	router.POST("/api/auth/login", NewAuthHandler(db, svc).Login)

	t.Run("valid credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email": "ada@acme.test", "password": "hunter2"}`))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token"`)
		assert.Contains(t, w.Body.String(), tenant.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email": "ada@acme.test", "password": "wrong"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})

	t.Run("unknown user", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email": "nobody@acme.test", "password": "hunter2"}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/auth/login",
			`{"email": "ada@acme.test"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMarkReadRouting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)

	tenant := models.Tenant{Name: "Acme"}
	require.NoError(t, db.Create(&tenant).Error)
	contact := models.Contact{TenantID: tenant.ID, Phone: "555", Name: "Ada"}
	require.NoError(t, db.Create(&contact).Error)
	conversation := models.Conversation{
		TenantID:          tenant.ID,
		ContactID:         contact.ID,
		WhatsAppAccountID: "acct",
		Status:            models.ConversationOpen,
		UnreadCount:       2,
	}
	require.NoError(t, db.Create(&conversation).Error)
	require.NoError(t, db.Create(&models.Message{
		ConversationID: conversation.ID,
		Direction:      models.DirectionInbound,
		Type:           "text",
		Content:        "hi",
		Status:         models.StatusDelivered,
	}).Error)

	handler := NewNotificationHandler(notifications.NewAggregator(db))
	router := gin.New()
	router.POST("/api/notifications/mark-read", func(c *gin.Context) {
		c.Set(ctxTenantID, tenant.ID)
		handler.MarkRead(c)
	})

	t.Run("message type marks messages only", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/notifications/mark-read",
			fmt.Sprintf(`{"type": "message", "id": %q}`, conversation.ID)))
		require.Equal(t, http.StatusOK, w.Code)

		var msg models.Message
		require.NoError(t, db.Where("conversation_id = ?", conversation.ID).Take(&msg).Error)
		assert.Equal(t, models.StatusRead, msg.Status)

		var conv models.Conversation
		require.NoError(t, db.Where("id = ?", conversation.ID).Take(&conv).Error)
		assert.Equal(t, 2, conv.UnreadCount)
	})

	t.Run("conversation type also resets counter", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/notifications/mark-read",
			fmt.Sprintf(`{"type": "conversation", "id": %q}`, conversation.ID)))
		require.Equal(t, http.StatusOK, w.Code)

		var conv models.Conversation
		require.NoError(t, db.Where("id = ?", conversation.ID).Take(&conv).Error)
		assert.Zero(t, conv.UnreadCount)
	})

	t.Run("other tenant's conversation", func(t *testing.T) {
		other := models.Tenant{Name: "Rival"}
		require.NoError(t, db.Create(&other).Error)
		otherContact := models.Contact{TenantID: other.ID, Phone: "777", Name: "Eve"}
		require.NoError(t, db.Create(&otherContact).Error)
		otherConv := models.Conversation{
			TenantID:          other.ID,
			ContactID:         otherContact.ID,
			WhatsAppAccountID: "acct",
			Status:            models.ConversationOpen,
			UnreadCount:       3,
		}
		require.NoError(t, db.Create(&otherConv).Error)
		require.NoError(t, db.Create(&models.Message{
			ConversationID: otherConv.ID,
			Direction:      models.DirectionInbound,
			Type:           "text",
			Content:        "private",
			Status:         models.StatusDelivered,
		}).Error)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/notifications/mark-read",
			fmt.Sprintf(`{"type": "conversation", "id": %q}`, otherConv.ID)))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var msg models.Message
		require.NoError(t, db.Where("conversation_id = ?", otherConv.ID).Take(&msg).Error)
		assert.Equal(t, models.StatusDelivered, msg.Status)

		var conv models.Conversation
		require.NoError(t, db.Where("id = ?", otherConv.ID).Take(&conv).Error)
		assert.Equal(t, 3, conv.UnreadCount)
	})

	t.Run("unknown type", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/notifications/mark-read",
			`{"type": "everything", "id": "x"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/notifications/mark-read",
			`{"type": "message"}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
