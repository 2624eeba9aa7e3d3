package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/utils"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": utils.Now().Format(time.RFC3339),
	})
}

// Status returns the connection state of every account
func Status(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, imapService.Status())
	}
}
