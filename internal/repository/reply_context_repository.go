package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const defaultReplyContextLimit = 5

type replyContextRepository struct {
	db *gorm.DB
}

func NewReplyContextRepository(db *gorm.DB) interfaces.ReplyContextRepository {
	return &replyContextRepository{
		db: db,
	}
}

func (r *replyContextRepository) Create(ctx context.Context, replyContext *models.ReplyContext) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "replyContextRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if replyContext == nil {
		return errors.New("reply context is nil")
	}

	if err := r.db.WithContext(ctx).Create(replyContext).Error; err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to store reply context")
	}
	tracing.TagEntity(span, replyContext.ID)
	return nil
}

// ListLatest returns the most recently stored contexts, newest first.
func (r *replyContextRepository) ListLatest(ctx context.Context, limit int) ([]*models.ReplyContext, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "replyContextRepository.ListLatest")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if limit <= 0 {
		limit = defaultReplyContextLimit
	}

	var contexts []*models.ReplyContext
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&contexts).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list reply contexts")
	}
	return contexts, nil
}
