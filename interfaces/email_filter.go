package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

// EmailFilterService recognises machine-generated mail before it reaches the
// classifier. ok is false when the message needs a model decision.
type EmailFilterService interface {
	Prefilter(ctx context.Context, email *models.Email) (category enum.EmailCategory, reason string, ok bool)
}
