package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/mailsync/internal/cron/config"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	SyncConfig      *SyncConfig
	AIConfig        *AIConfig
	WebhookConfig   *WebhookConfig
	R2StorageConfig *R2StorageConfig
	CronConfig      *cron_config.Config

	Accounts []*models.Account
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		SyncConfig:      &SyncConfig{},
		AIConfig:        &AIConfig{},
		WebhookConfig:   &WebhookConfig{},
		R2StorageConfig: &R2StorageConfig{},
		CronConfig:      &cron_config.Config{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "error loading mailsync config")
	}

	config.Accounts, err = LoadAccounts(EnvironMap())
	if err != nil {
		return nil, err
	}

	return config, nil
}
