package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-dashboard/internal/models"
)

type ContactHandler struct {
	DB *gorm.DB
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{DB: db}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	var contacts []models.Contact
	err := h.DB.Where("tenant_id = ?", TenantID(c)).
		Order("created_at DESC").
		Find(&contacts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

type createContactRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	contact := models.Contact{
		TenantID: TenantID(c),
		Phone:    req.Phone,
		Name:     req.Name,
		Source:   "manual",
	}
	// Upsert against the (tenant, phone) uniqueness so re-adding a
	// known number updates the name instead of failing.
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&contact).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

type updateContactRequest struct {
	Name string `json:"name"`
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	result := h.DB.Model(&models.Contact{}).
		Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).
		Update("name", req.Name)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update contact"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	result := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), TenantID(c)).
		Delete(&models.Contact{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete contact"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	var contacts []models.Contact
	err := h.DB.Where("tenant_id = ?", TenantID(c)).
		Order("created_at DESC").
		Find(&contacts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	var b strings.Builder
	b.WriteString("Phone,Name,Source,Created At\n")
	for _, contact := range contacts {
		b.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			contact.Phone, contact.Name, contact.Source, contact.CreatedAt.Format("2006-01-02 15:04:05")))
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, b.String())
}
