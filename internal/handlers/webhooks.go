package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/facehub/backend/internal/models"
	"github.com/facehub/backend/internal/webhooks"
)

// maxWebhooksPerUser caps registrations per owner.
const maxWebhooksPerUser = 5

type WebhookHandler struct {
	db      *gorm.DB
	checker webhooks.EndpointChecker
}

func NewWebhookHandler(db *gorm.DB, checker webhooks.EndpointChecker) *WebhookHandler {
	return &WebhookHandler{db: db, checker: checker}
}

// CreateWebhook registers a callback endpoint for the authenticated user.
// The signing secret is generated here and returned exactly once; it is
// never readable again.
func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	ownerID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		URL    string   `json:"url" binding:"required"`
		Events []string `json:"events" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, name := range input.Events {
		if !webhooks.KnownEvent(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown event type: " + name})
			return
		}
	}

	// Endpoints are re-checked before every delivery, but rejecting
	// obviously unsafe URLs here saves the registrant a dead subscription.
	if err := h.checker.CheckEndpoint(c.Request.Context(), input.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	h.db.Model(&models.WebhookSubscription{}).Where("owner_id = ?", ownerID).Count(&count)
	if count >= maxWebhooksPerUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook limit reached (max 5). Delete one first."})
		return
	}

	sub := models.WebhookSubscription{
		OwnerID: ownerID,
		URL:     input.URL,
		Secret:  webhooks.NewSecret(),
		Events:  strings.Join(input.Events, ","),
		Active:  true,
	}

	if err := h.db.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create webhook"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     sub.ID,
		"url":    sub.URL,
		"events": sub.EventList(),
		"secret": sub.Secret,
		"message": "Store the secret now — it will not be shown again. " +
			"Deliveries carry its HMAC-SHA256 signature in " + webhooks.SignatureHeader + ".",
	})
}

// ListWebhooks returns the authenticated user's webhooks, secrets omitted.
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	ownerID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var subs []models.WebhookSubscription
	if err := h.db.Where("owner_id = ?", ownerID).Order("created_at").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch webhooks"})
		return
	}

	if subs == nil {
		subs = []models.WebhookSubscription{}
	}
	c.JSON(http.StatusOK, subs)
}

// DeleteWebhook removes one of the authenticated user's webhooks.
func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	ownerID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var sub models.WebhookSubscription
	if err := h.db.First(&sub, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Webhook not found"})
		return
	}

	if sub.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own webhooks"})
		return
	}

	if err := h.db.Delete(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted successfully"})
}
