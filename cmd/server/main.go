package main

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"whatsapp-dashboard/internal/ai"
	"whatsapp-dashboard/internal/api"
	"whatsapp-dashboard/internal/auth"
	"whatsapp-dashboard/internal/config"
	"whatsapp-dashboard/internal/database"
	"whatsapp-dashboard/internal/notifications"
	"whatsapp-dashboard/internal/reconcile"
	"whatsapp-dashboard/internal/webhook"
	"whatsapp-dashboard/internal/whatsapp"
	"whatsapp-dashboard/internal/ws"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := database.SeedTenant(db, cfg); err != nil {
		log.Fatalf("Failed to seed tenant: %v", err)
	}

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	generator := ai.NewGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.DefaultModel)
	senders := func(phoneNumberID, accessToken string) reconcile.TextSender {
		return whatsapp.NewClient(phoneNumberID, accessToken)
	}

	hub := ws.NewHub()
	go hub.Run()

	engine := reconcile.NewEngine(db, generator, senders).WithPublisher(hub)
	aggregator := notifications.NewAggregator(db)
	authService := auth.NewService(cfg.JWTSecret)

	webhookHandler := webhook.NewHandler(cfg, engine)
	authHandler := api.NewAuthHandler(db, authService)
	notificationHandler := api.NewNotificationHandler(aggregator)
	inboxHandler := api.NewInboxHandler(db, senders)
	contactHandler := api.NewContactHandler(db)
	quickReplyHandler := api.NewQuickReplyHandler(db)
	assistantHandler := api.NewAssistantHandler(db)
	adminHandler := api.NewAdminHandler(db, generator, engine, senders)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleEvent)

	r.POST("/api/auth/login", authHandler.Login)

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	apiGroup.Use(api.RequireAuth(authService))
	{
		apiGroup.GET("/notifications", notificationHandler.GetNotifications)
		apiGroup.POST("/notifications", notificationHandler.MarkRead)

		// Inbox Routes
		apiGroup.GET("/conversations", inboxHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", inboxHandler.GetMessages)
		apiGroup.POST("/conversations/:id/messages", inboxHandler.SendMessage)
		apiGroup.PUT("/conversations/:id/status", inboxHandler.UpdateStatus)

		// CRM Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.PUT("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)

		// Quick Reply Routes
		apiGroup.GET("/quick-replies", quickReplyHandler.GetQuickReplies)
		apiGroup.POST("/quick-replies", quickReplyHandler.CreateQuickReply)
		apiGroup.PUT("/quick-replies/:id", quickReplyHandler.UpdateQuickReply)
		apiGroup.DELETE("/quick-replies/:id", quickReplyHandler.DeleteQuickReply)

		// Assistant Routes
		apiGroup.GET("/assistants", assistantHandler.GetAssistants)
		apiGroup.POST("/assistants", assistantHandler.CreateAssistant)
		apiGroup.PUT("/assistants/:id", assistantHandler.UpdateAssistant)
		apiGroup.DELETE("/assistants/:id", assistantHandler.DeleteAssistant)

		// Admin Diagnostics Routes
		apiGroup.POST("/admin/test-ai", adminHandler.TestAI)
		apiGroup.GET("/admin/test-whatsapp", adminHandler.TestWhatsApp)
		apiGroup.POST("/admin/send-test-message", adminHandler.SendTestMessage)
		apiGroup.POST("/admin/test-webhook", adminHandler.TestWebhook)

		// Live inbox event stream
		apiGroup.GET("/ws", func(c *gin.Context) {
			hub.ServeWs(c.Writer, c.Request, api.TenantID(c))
		})
	}

	log.Infof("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
