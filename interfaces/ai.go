package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

// Classifier never fails; problems yield enum.EmailUncategorized.
type Classifier interface {
	Classify(ctx context.Context, email *models.Email) enum.EmailCategory
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, email *models.Email, replyContext string) (string, error)
}

type AIService interface {
	Classifier
	ReplyGenerator
}
