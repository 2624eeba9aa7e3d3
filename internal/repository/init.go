package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
)

type Repositories struct {
	EmailRepository        interfaces.EmailIndex
	ReplyContextRepository interfaces.ReplyContextRepository
	SyncStateRepository    interfaces.SyncStateRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:        NewEmailRepository(db),
		ReplyContextRepository: NewReplyContextRepository(db),
		SyncStateRepository:    NewSyncStateRepository(db),
	}
}

// MigrateDB runs AutoMigrate on a small pool and restores the configured pool limits.
func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Email{},
		&models.ReplyContext{},
		&models.SyncState{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Second)

	return err
}
