package models

import (
	"time"
)

// SyncState records the last completed sync pass of one account folder.
type SyncState struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AccountID  string    `gorm:"column:account_id;type:varchar(50);not null;uniqueIndex:idx_sync_state_account_folder" json:"accountId"`
	FolderName string    `gorm:"column:folder_name;type:varchar(100);not null;uniqueIndex:idx_sync_state_account_folder" json:"folder"`
	LastUID    uint32    `gorm:"column:last_uid;not null" json:"lastUid"`
	LastKind   string    `gorm:"column:last_kind;type:varchar(20)" json:"lastKind"`
	LastFound  int       `gorm:"column:last_found" json:"lastFound"`
	LastSync   time.Time `gorm:"column:last_sync;type:timestamp;not null" json:"lastSync"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
