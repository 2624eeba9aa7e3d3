package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/models"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return m.Called(ctx, bucket, key, data, contentType).Error(0)
}

func (m *mockS3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockS3Client) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func TestAttachmentKey(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"deck.pdf", "attachments/account_1/email_1/deck.pdf"},
		{"../../etc/passwd", "attachments/account_1/email_1/passwd"},
		{`C:\Users\jane\report.xlsx`, "attachments/account_1/email_1/report.xlsx"},
		{"", "attachments/account_1/email_1/unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, AttachmentKey("account_1", "email_1", tt.filename))
		})
	}
}

func TestStoreAttachment_UploadsUnderEmailPrefix(t *testing.T) {
	// Arrange
	client := &mockS3Client{}
	client.On("Upload", mock.Anything, "attachments", "attachments/account_1/email_1/deck.pdf", []byte{1, 2}, "application/pdf").Return(nil)
	svc := NewStorageService(client, "attachments")
	email := &models.Email{ID: "email_1", AccountID: "account_1"}

	// Act
	key, err := svc.StoreAttachment(context.Background(), email, &models.Attachment{
		Filename:    "deck.pdf",
		ContentType: "application/pdf",
		Content:     []byte{1, 2},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "attachments/account_1/email_1/deck.pdf", key)
	client.AssertExpectations(t)
}

func TestStoreAttachment_DefaultContentTypeAndError(t *testing.T) {
	client := &mockS3Client{}
	client.On("Upload", mock.Anything, "bucket", mock.Anything, mock.Anything, "application/octet-stream").Return(errors.New("access denied"))
	svc := NewStorageService(client, "bucket")

	key, err := svc.StoreAttachment(context.Background(), &models.Email{ID: "email_1", AccountID: "account_1"}, &models.Attachment{Filename: "x.bin"})

	require.Error(t, err)
	assert.Empty(t, key)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewR2StorageService_Disabled(t *testing.T) {
	svc, err := NewR2StorageService(&config.R2StorageConfig{})

	require.NoError(t, err)
	assert.Nil(t, svc)
}
