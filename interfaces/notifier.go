package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
)

type Notifier interface {
	Name() string
	Notify(ctx context.Context, email *models.Email) error
}

type WebhookService interface {
	Notifiers() []Notifier
	TestWebhooks(ctx context.Context) dto.WebhookTestResult
}
