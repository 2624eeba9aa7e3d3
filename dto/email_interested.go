package dto

import (
	"time"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

const (
	EventEmailInterested = "email.interested"
	EventWebhookTest     = "webhook.test"
)

type InterestedEmailData struct {
	EmailID   string             `json:"emailId"`
	MessageID string             `json:"messageId,omitempty"`
	From      string             `json:"from"`
	To        []string           `json:"to"`
	Subject   string             `json:"subject"`
	Body      string             `json:"body"`
	Date      time.Time          `json:"date"`
	Category  enum.EmailCategory `json:"category"`
	AccountID string             `json:"accountId"`
}

func NewInterestedEmailData(email *models.Email) InterestedEmailData {
	return InterestedEmailData{
		EmailID:   email.ID,
		MessageID: email.MessageID,
		From:      email.From,
		To:        email.ToAddresses,
		Subject:   email.Subject,
		Body:      email.BodyText,
		Date:      email.Date,
		Category:  email.Category,
		AccountID: email.AccountID,
	}
}

// WebhookPayload is the body posted to the generic webhook.
type WebhookPayload struct {
	Event     string               `json:"event"`
	Timestamp string               `json:"timestamp"`
	Data      *InterestedEmailData `json:"data,omitempty"`
	Message   string               `json:"message,omitempty"`
}

type WebhookTestResult struct {
	Slack   bool `json:"slack"`
	Generic bool `json:"generic"`
}
