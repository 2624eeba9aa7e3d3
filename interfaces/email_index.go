package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
)

// EmailIndex stores and searches ingested messages. IndexMessage is an upsert keyed by
// (AccountID, MessageID); on return email.ID holds the id of the stored record.
type EmailIndex interface {
	IndexMessage(ctx context.Context, email *models.Email) error
	UpdateMessage(ctx context.Context, id string, fields map[string]interface{}) error
	GetMessage(ctx context.Context, id string) (*models.Email, error)
	SearchMessages(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error)
}

type ReplyContextRepository interface {
	Create(ctx context.Context, replyContext *models.ReplyContext) error
	ListLatest(ctx context.Context, limit int) ([]*models.ReplyContext, error)
}
