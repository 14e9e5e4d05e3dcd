package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"whatsapp-dashboard/internal/models"
)

type AssistantHandler struct {
	DB *gorm.DB
}

func NewAssistantHandler(db *gorm.DB) *AssistantHandler {
	return &AssistantHandler{DB: db}
}

func (h *AssistantHandler) GetAssistants(c *gin.Context) {
	var assistants []models.AIAssistant
	err := h.DB.Where("tenant_id = ?", TenantID(c)).
		Order("created_at ASC").
		Find(&assistants).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if assistants == nil {
		assistants = []models.AIAssistant{}
	}
	c.JSON(http.StatusOK, assistants)
}

type assistantRequest struct {
	Name         string          `json:"name" binding:"required"`
	SystemPrompt string          `json:"system_prompt"`
	Model        string          `json:"model"`
	Temperature  float64         `json:"temperature"`
	MaxTokens    int             `json:"max_tokens"`
	IsDefault    bool            `json:"is_default"`
	Config       json.RawMessage `json:"config"`
}

func (h *AssistantHandler) CreateAssistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	assistant := models.AIAssistant{
		TenantID:     TenantID(c),
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		IsDefault:    req.IsDefault,
		Config:       string(req.Config),
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if assistant.IsDefault {
			if err := clearDefault(tx, assistant.TenantID); err != nil {
				return err
			}
		}
		return tx.Create(&assistant).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create assistant"})
		return
	}

	c.JSON(http.StatusCreated, assistant)
}

func (h *AssistantHandler) UpdateAssistant(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tenantID := TenantID(c)
	var updated int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := clearDefault(tx, tenantID); err != nil {
				return err
			}
		}
		result := tx.Model(&models.AIAssistant{}).
			Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).
			Updates(map[string]interface{}{
				"name":          req.Name,
				"system_prompt": req.SystemPrompt,
				"model":         req.Model,
				"temperature":   req.Temperature,
				"max_tokens":    req.MaxTokens,
				"is_default":    req.IsDefault,
				"config":        string(req.Config),
			})
		updated = result.RowsAffected
		return result.Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update assistant"})
		return
	}
	if updated == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "assistant not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AssistantHandler) DeleteAssistant(c *gin.Context) {
	result := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).
		Delete(&models.AIAssistant{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete assistant"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "assistant not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// At most one default assistant drives auto-response per tenant.
func clearDefault(tx *gorm.DB, tenantID string) error {
	return tx.Model(&models.AIAssistant{}).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Update("is_default", false).Error
}
