package events

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/utils"
)

// InterestedNotifier publishes an email.interested event for downstream consumers.
type InterestedNotifier struct {
	publisher interfaces.EventPublisher
}

func NewInterestedNotifier(publisher interfaces.EventPublisher) *InterestedNotifier {
	return &InterestedNotifier{publisher: publisher}
}

func (n *InterestedNotifier) Name() string {
	return "rabbitmq"
}

func (n *InterestedNotifier) Notify(ctx context.Context, email *models.Email) error {
	ctx = utils.SetAccountIDInContext(ctx, email.AccountID)
	return n.publisher.PublishFanoutEvent(ctx, email.ID, enum.EMAIL, dto.EventEmailInterested, dto.NewInterestedEmailData(email))
}
