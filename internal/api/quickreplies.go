package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-dashboard/internal/models"
)

type QuickReplyHandler struct {
	DB *gorm.DB
}

func NewQuickReplyHandler(db *gorm.DB) *QuickReplyHandler {
	return &QuickReplyHandler{DB: db}
}

func (h *QuickReplyHandler) GetQuickReplies(c *gin.Context) {
	var replies []models.QuickReply
	err := h.DB.Where("tenant_id = ?", TenantID(c)).
		Order("title ASC").
		Find(&replies).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if replies == nil {
		replies = []models.QuickReply{}
	}
	c.JSON(http.StatusOK, replies)
}

type quickReplyRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Shortcut string `json:"shortcut"`
}

func (h *QuickReplyHandler) CreateQuickReply(c *gin.Context) {
	var req quickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	reply := models.QuickReply{
		TenantID: TenantID(c),
		Title:    req.Title,
		Content:  req.Content,
		Shortcut: req.Shortcut,
	}
	if err := h.DB.Create(&reply).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create quick reply"})
		return
	}

	c.JSON(http.StatusCreated, reply)
}

func (h *QuickReplyHandler) UpdateQuickReply(c *gin.Context) {
	var req quickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result := h.DB.Model(&models.QuickReply{}).
		Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).
		Updates(map[string]interface{}{
			"title":    req.Title,
			"content":  req.Content,
			"shortcut": req.Shortcut,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update quick reply"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "quick reply not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *QuickReplyHandler) DeleteQuickReply(c *gin.Context) {
	result := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).
		Delete(&models.QuickReply{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete quick reply"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "quick reply not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
