package email_processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		LogLevel: "error",
		DevMode:  true,
	})
	appLogger.InitLogger()
	return appLogger
}

type mockEmailIndex struct {
	mock.Mock
}

func (m *mockEmailIndex) IndexMessage(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockEmailIndex) UpdateMessage(ctx context.Context, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *mockEmailIndex) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	args := m.Called(ctx, id)
	email, _ := args.Get(0).(*models.Email)
	return email, args.Error(1)
}

func (m *mockEmailIndex) SearchMessages(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error) {
	args := m.Called(ctx, query)
	result, _ := args.Get(0).(*dto.SearchResult)
	return result, args.Error(1)
}

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, email *models.Email) enum.EmailCategory {
	args := m.Called(ctx, email)
	return args.Get(0).(enum.EmailCategory)
}

type mockNotifier struct {
	mock.Mock
	name string
}

func (m *mockNotifier) Name() string {
	return m.name
}

func (m *mockNotifier) Notify(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type mockAttachmentStore struct {
	mock.Mock
}

func (m *mockAttachmentStore) StoreAttachment(ctx context.Context, email *models.Email, attachment *models.Attachment) (string, error) {
	args := m.Called(ctx, email, attachment)
	return args.String(0), args.Error(1)
}

func rawEmail(messageID, from, subject, body string) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	b.WriteString("To: sales@acme.io\r\n")
	if subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	}
	if messageID != "" {
		fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	}
	b.WriteString("Date: Fri, 15 Mar 2024 09:30:00 +0000\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
