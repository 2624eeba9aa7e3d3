package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type mockEmailIndex struct {
	mock.Mock
}

func (m *mockEmailIndex) IndexMessage(ctx context.Context, email *models.Email) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockEmailIndex) UpdateMessage(ctx context.Context, id string, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *mockEmailIndex) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Email), args.Error(1)
}

func (m *mockEmailIndex) SearchMessages(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SearchResult), args.Error(1)
}

type mockReplyContextRepository struct {
	mock.Mock
}

func (m *mockReplyContextRepository) Create(ctx context.Context, replyContext *models.ReplyContext) error {
	return m.Called(ctx, replyContext).Error(0)
}

func (m *mockReplyContextRepository) ListLatest(ctx context.Context, limit int) ([]*models.ReplyContext, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReplyContext), args.Error(1)
}

type mockAIService struct {
	mock.Mock
}

func (m *mockAIService) Classify(ctx context.Context, email *models.Email) enum.EmailCategory {
	return m.Called(ctx, email).Get(0).(enum.EmailCategory)
}

func (m *mockAIService) GenerateReply(ctx context.Context, email *models.Email, replyContext string) (string, error) {
	args := m.Called(ctx, email, replyContext)
	return args.String(0), args.Error(1)
}

type mockIMAPService struct {
	mock.Mock
}

func (m *mockIMAPService) ConnectAll(ctx context.Context, accounts []*models.Account) {
	m.Called(ctx, accounts)
}

func (m *mockIMAPService) Reconnect(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *mockIMAPService) TriggerSync(accountID string) error {
	return m.Called(accountID).Error(0)
}

func (m *mockIMAPService) TriggerSyncAll() int {
	return m.Called().Int(0)
}

func (m *mockIMAPService) Status() []interfaces.AccountStatus {
	return m.Called().Get(0).([]interfaces.AccountStatus)
}

func (m *mockIMAPService) DisconnectAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) Notifiers() []interfaces.Notifier {
	return nil
}

func (m *mockWebhookService) TestWebhooks(ctx context.Context) dto.WebhookTestResult {
	return m.Called(ctx).Get(0).(dto.WebhookTestResult)
}

type mockSyncStateRepository struct {
	mock.Mock
}

func (m *mockSyncStateRepository) GetSyncState(ctx context.Context, accountID, folderName string) (*models.SyncState, error) {
	args := m.Called(ctx, accountID, folderName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncState), args.Error(1)
}

func (m *mockSyncStateRepository) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *mockSyncStateRepository) ListSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncState), args.Error(1)
}
