package config

import "time"

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"3000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILSYNC_POSTGRES_HOST,required"`
	Port            string `env:"MAILSYNC_POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"MAILSYNC_POSTGRES_USER,required"`
	DBName          string `env:"MAILSYNC_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSYNC_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSYNC_POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"MAILSYNC_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MAILSYNC_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"3600"`
	LogLevel        string `env:"MAILSYNC_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSYNC_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type SyncConfig struct {
	// Backfill lookback window
	SyncDays            int           `env:"SYNC_DAYS" envDefault:"30"`
	PipelineConcurrency int           `env:"SYNC_PIPELINE_CONCURRENCY" envDefault:"5"`
	MessageTimeout      time.Duration `env:"SYNC_MESSAGE_TIMEOUT" envDefault:"30s"`
	ConnectTimeout      time.Duration `env:"IMAP_CONNECT_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout     time.Duration `env:"IMAP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Folder              string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
}

type AIConfig struct {
	Url     string        `env:"OPENAI_API_URL" envDefault:"https://api.openai.com/v1"`
	ApiKey  string        `env:"OPENAI_API_KEY"`
	Model   string        `env:"OPENAI_MODEL" envDefault:"gpt-4-turbo-preview"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
}

type WebhookConfig struct {
	SlackURL   string        `env:"SLACK_WEBHOOK_URL"`
	GenericURL string        `env:"GENERIC_WEBHOOK_URL"`
	Timeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
}

type R2StorageConfig struct {
	AccountID             string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID           string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret       string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}

// Enabled reports whether attachment archival was configured.
func (c *R2StorageConfig) Enabled() bool {
	return c != nil && c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}
