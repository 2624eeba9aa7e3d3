package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/enum"
)

type EventPublisher interface {
	PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, message interface{}) error
	Close() error
}
