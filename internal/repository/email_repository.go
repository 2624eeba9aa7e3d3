package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

// columns refreshed when a message is indexed again; category and read are owned by
// the classifier and the user.
var reindexColumns = []string{
	"folder",
	"imap_uid",
	"from_address",
	"from_name",
	"to_addresses",
	"cc_addresses",
	"subject",
	"body_text",
	"body_html",
	"date",
	"attachments",
	"updated_at",
}

var updatableColumns = map[string]bool{
	"category": true,
	"read":     true,
	"folder":   true,
}

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailIndex {
	return &emailRepository{
		db: db,
	}
}

// IndexMessage upserts on (account_id, message_id). The surviving row's id is written
// back into email.ID, so re-indexing the same message converges on one record.
func (r *emailRepository) IndexMessage(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.IndexMessage")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if email == nil {
		return pkgerrors.New("email is nil")
	}
	tracing.TagAccount(span, email.AccountID)
	span.LogFields(tracingLog.String("message_id", email.MessageID))

	err := r.upsert(r.db.WithContext(ctx), email).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return pkgerrors.Wrap(err, "failed to index email")
	}

	tracing.TagEntity(span, email.ID)
	return nil
}

func (r *emailRepository) upsert(db *gorm.DB, email *models.Email) *gorm.DB {
	return db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "message_id"}},
			DoUpdates: clause.AssignmentColumns(reindexColumns),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}}},
	).Create(email)
}

func (r *emailRepository) UpdateMessage(ctx context.Context, id string, fields map[string]interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateMessage")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	updates, err := sanitizeUpdates(fields)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	tracing.LogObjectAsJson(span, "updates", updates)

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return pkgerrors.Wrap(result.Error, "failed to update email")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.Wrap(mailerrors.ErrEmailNotFound, id)
	}
	return nil
}

func sanitizeUpdates(fields map[string]interface{}) (map[string]interface{}, error) {
	if len(fields) == 0 {
		return nil, pkgerrors.New("no fields to update")
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for column, value := range fields {
		if !updatableColumns[column] {
			return nil, pkgerrors.Errorf("column %s cannot be updated", column)
		}
		if category, ok := value.(enum.EmailCategory); ok {
			if !category.IsValid() {
				return nil, pkgerrors.Errorf("invalid category %q", category)
			}
			value = string(category)
		}
		updates[column] = value
	}
	updates["updated_at"] = utils.Now()
	return updates, nil
}

func (r *emailRepository) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetMessage")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(mailerrors.ErrEmailNotFound, id)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// SearchMessages matches query against subject, body and sender, newest first.
func (r *emailRepository) SearchMessages(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SearchMessages")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "query", query)

	query.Normalize()
	base := r.searchScope(r.db.WithContext(ctx), query)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, pkgerrors.Wrap(err, "failed to count emails")
	}

	var emails []*models.Email
	err := r.pageScope(base, query).Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, pkgerrors.Wrap(err, "failed to search emails")
	}

	span.LogFields(tracingLog.Int64("total", total), tracingLog.Int("returned", len(emails)))
	return &dto.SearchResult{Messages: emails, Total: total}, nil
}

func (r *emailRepository) searchScope(db *gorm.DB, query dto.SearchQuery) *gorm.DB {
	tx := db.Model(&models.Email{})

	if query.AccountID != "" {
		tx = tx.Where("account_id = ?", query.AccountID)
	}
	if query.Folder != "" {
		tx = tx.Where("folder = ?", query.Folder)
	}
	if query.Category != "" {
		tx = tx.Where("category = ?", string(query.Category))
	}
	if query.From != nil {
		tx = tx.Where("date >= ?", *query.From)
	}
	if query.To != nil {
		tx = tx.Where("date <= ?", *query.To)
	}
	if query.Query != "" {
		like := "%" + query.Query + "%"
		tx = tx.Where("subject ILIKE ? OR body_text ILIKE ? OR from_address ILIKE ?", like, like, like)
	}

	return tx.Session(&gorm.Session{})
}

func (r *emailRepository) pageScope(db *gorm.DB, query dto.SearchQuery) *gorm.DB {
	return db.Order("date DESC").Offset(query.Offset()).Limit(query.Limit)
}
