package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/models"
)

type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// AttachmentStore archives attachment bytes and returns the object key.
type AttachmentStore interface {
	StoreAttachment(ctx context.Context, email *models.Email, attachment *models.Attachment) (string, error)
}
