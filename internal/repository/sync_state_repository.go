package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{
		db: db,
	}
}

func (r *syncStateRepository) GetSyncState(ctx context.Context, accountID, folderName string) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	var state models.SyncState
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND folder_name = ?", accountID, folderName).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, pkgerrors.Wrap(err, "failed to get sync state")
	}
	return &state, nil
}

func (r *syncStateRepository) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.SaveSyncState")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if state == nil {
		return pkgerrors.New("sync state is nil")
	}
	tracing.TagAccount(span, state.AccountID)

	if err := r.save(r.db.WithContext(ctx), state).Error; err != nil {
		tracing.TraceErr(span, err)
		return pkgerrors.Wrap(err, "failed to save sync state")
	}
	return nil
}

func (r *syncStateRepository) save(db *gorm.DB, state *models.SyncState) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "folder_name"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "last_uid"}, Value: gorm.Expr("GREATEST(sync_states.last_uid, excluded.last_uid)")},
			{Column: clause.Column{Name: "last_kind"}, Value: gorm.Expr("excluded.last_kind")},
			{Column: clause.Column{Name: "last_found"}, Value: gorm.Expr("excluded.last_found")},
			{Column: clause.Column{Name: "last_sync"}, Value: gorm.Expr("excluded.last_sync")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
		},
	}).Create(state)
}

func (r *syncStateRepository) ListSyncStates(ctx context.Context) ([]*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.ListSyncStates")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var states []*models.SyncState
	err := r.db.WithContext(ctx).
		Order("account_id ASC, folder_name ASC").
		Find(&states).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, pkgerrors.Wrap(err, "failed to list sync states")
	}
	return states, nil
}
