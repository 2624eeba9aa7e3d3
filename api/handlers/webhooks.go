package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailsync/interfaces"
)

func TestWebhooks(webhooks interfaces.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := webhooks.TestWebhooks(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
	}
}
