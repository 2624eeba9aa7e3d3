package interfaces

import (
	"context"

	"github.com/customeros/mailsync/internal/models"
)

type SyncStateRepository interface {
	GetSyncState(ctx context.Context, accountID, folderName string) (*models.SyncState, error)
	// SaveSyncState upserts on (account_id, folder_name). LastUID never moves backwards.
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]*models.SyncState, error)
}
