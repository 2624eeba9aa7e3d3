package storage

import (
	"context"
	"path"
	"strings"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services/storage/aws_client"
)

const attachmentPrefix = "attachments"

// ObjectStorageService implements interfaces.StorageService and
// interfaces.AttachmentStore on top of an S3 compatible bucket.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
}

func NewStorageService(client aws_client.S3Client, bucketName string) *ObjectStorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: bucketName,
	}
}

// NewR2StorageService returns nil when R2 credentials are not configured.
func NewR2StorageService(cfg *config.R2StorageConfig) (*ObjectStorageService, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client, err := aws_client.NewR2Client(aws_client.R2Config{
		AccountID:       cfg.AccountID,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create R2 client")
	}

	return NewStorageService(client, cfg.EmailAttachmentBucket), nil
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.String("key", key), tracingLog.Int("size", len(data)))

	return s.client.Upload(ctx, s.bucketName, key, data, contentType)
}

func (s *ObjectStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Download(ctx, s.bucketName, key)
}

func (s *ObjectStorageService) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.client.Delete(ctx, s.bucketName, key)
}

func (s *ObjectStorageService) StoreAttachment(ctx context.Context, email *models.Email, attachment *models.Attachment) (string, error) {
	key := AttachmentKey(email.AccountID, email.ID, attachment.Filename)

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.Upload(ctx, key, attachment.Content, contentType); err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}
	return key, nil
}

// AttachmentKey builds attachments/<accountId>/<emailId>/<filename>. The filename is
// reduced to its base name so it cannot escape the email's prefix.
func AttachmentKey(accountID, emailID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "unknown"
	}
	return path.Join(attachmentPrefix, accountID, emailID, name)
}
