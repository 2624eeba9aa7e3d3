package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/utils"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, message interface{}) error {
	args := m.Called(ctx, entityId, entityType, eventType, message)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestInterestedNotifier_PublishesEmailEvent(t *testing.T) {
	// Arrange
	email := &models.Email{ID: "email_1", AccountID: "account_1", From: "jane@prospect.com", Category: enum.EmailInterested}
	publisher := &mockPublisher{}
	publisher.On("PublishFanoutEvent",
		mock.MatchedBy(func(ctx context.Context) bool { return utils.GetAccountIDFromContext(ctx) == "account_1" }),
		"email_1", enum.EMAIL, dto.EventEmailInterested,
		mock.AnythingOfType("dto.InterestedEmailData"),
	).Return(nil)

	// Act
	err := NewInterestedNotifier(publisher).Notify(context.Background(), email)

	// Assert
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestInterestedNotifier_ReturnsPublishError(t *testing.T) {
	publisher := &mockPublisher{}
	publisher.On("PublishFanoutEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	err := NewInterestedNotifier(publisher).Notify(context.Background(), &models.Email{ID: "email_1"})

	assert.EqualError(t, err, "channel closed")
}

func TestNewEvent_Envelope(t *testing.T) {
	span := opentracing.NoopTracer{}.StartSpan("test")
	ctx := utils.SetAccountIDInContext(context.Background(), "account_2")

	event := newEvent(ctx, span, "email_9", enum.EMAIL, dto.EventEmailInterested, map[string]string{"k": "v"})

	assert.Contains(t, event.Event.Id, "event_")
	assert.Equal(t, "email_9", event.Event.EntityId)
	assert.Equal(t, enum.EMAIL, event.Event.EntityType)
	assert.Equal(t, "email.interested", event.Event.EventType)
	assert.Equal(t, AppSource, event.Metadata.AppSource)
	assert.Equal(t, "account_2", event.Metadata.AccountId)
	_, err := time.Parse(time.RFC3339, event.Metadata.Timestamp)
	assert.NoError(t, err)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":{"k":"v"}`)
}

func TestQueueArgs_DeadLettering(t *testing.T) {
	args := queueArgs(time.Hour)

	assert.Equal(t, ExchangeDeadLetter, args["x-dead-letter-exchange"])
	assert.Equal(t, RoutingKeyDeadLetter, args["x-dead-letter-routing-key"])
	assert.Equal(t, int64(3600000), args["x-message-ttl"])
}
