package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"

	"github.com/customeros/mailsync/config"
)

func validConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "mailsync",
		DBName:   "mailsync",
		Password: "password",
		SSLMode:  "disable",
	}
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, validateConfig(validConfig()))
	assert.EqualError(t, validateConfig(nil), "database config is nil")

	cfg := validConfig()
	cfg.Password = ""
	assert.EqualError(t, validateConfig(cfg), "database password config is empty")
}

func TestNewConnection_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "postgres"

	db, err := NewConnection(cfg)

	assert.Nil(t, db)
	assert.ErrorContains(t, err, "invalid port number")
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Error, gormLogLevel("ERROR"))
	assert.Equal(t, logger.Info, gormLogLevel("info"))
	assert.Equal(t, logger.Warn, gormLogLevel("WARN"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}
