package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
)

type accountResponse struct {
	ID        string               `json:"id"`
	User      string               `json:"user"`
	Host      string               `json:"host"`
	Connected bool                 `json:"connected"`
	State     enum.ConnectionState `json:"state"`
	LastError string               `json:"lastError,omitempty"`
}

// ListAccounts joins the configured accounts with their live connection status.
func ListAccounts(accounts []*models.Account, imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		byID := make(map[string]interfaces.AccountStatus)
		for _, status := range imapService.Status() {
			byID[status.AccountID] = status
		}

		data := make([]accountResponse, 0, len(accounts))
		for _, account := range accounts {
			status, ok := byID[account.ID]
			state := status.State
			if !ok {
				state = enum.ConnectionDisconnected
			}
			data = append(data, accountResponse{
				ID:        account.ID,
				User:      account.Username,
				Host:      account.Host,
				Connected: status.Connected,
				State:     state,
				LastError: status.LastError,
			})
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
	}
}

// SyncAccounts queues an unseen sweep on every connected account.
func SyncAccounts(imapService interfaces.IMAPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		queued := imapService.TriggerSyncAll()
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": "Sync triggered",
			"queued":  queued,
		})
	}
}

func ReconnectAccount(imapService interfaces.IMAPService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := imapService.Reconnect(c.Request.Context(), id); err != nil {
			log.Warnf("Reconnect of %s failed: %v", id, err)
			errorResponse(c, statusFor(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account reconnected"})
	}
}

// ListSyncStates returns the last completed sync pass of every account folder.
func ListSyncStates(syncStates interfaces.SyncStateRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		states, err := syncStates.ListSyncStates(c.Request.Context())
		if err != nil {
			log.Errorf("Failed to list sync states: %v", err)
			errorResponse(c, http.StatusInternalServerError, "Failed to list sync states")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": states})
	}
}
