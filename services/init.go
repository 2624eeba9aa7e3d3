package services

import (
	"fmt"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/services/ai"
	"github.com/customeros/mailsync/services/email_filter"
	"github.com/customeros/mailsync/services/email_processor"
	"github.com/customeros/mailsync/services/events"
	"github.com/customeros/mailsync/services/imap"
	"github.com/customeros/mailsync/services/storage"
	"github.com/customeros/mailsync/services/webhook"
)

type Services struct {
	AIService      interfaces.AIService
	WebhookService interfaces.WebhookService
	// nil when RABBITMQ_URL is not set
	EventsService *events.EventsService
	// nil when R2 credentials are not set
	StorageService interfaces.StorageService
	Pipeline       interfaces.IngestionPipeline
	IMAPService    interfaces.IMAPService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	services := &Services{
		AIService:      ai.NewAIService(cfg.AIConfig, log),
		WebhookService: webhook.NewWebhookService(cfg.WebhookConfig, log),
	}

	notifiers := services.WebhookService.Notifiers()

	if cfg.AppConfig.RabbitMQURL != "" {
		eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
		if err != nil {
			return nil, err
		}
		services.EventsService = eventsService
		notifiers = append(notifiers, eventsService.Notifier())
	} else {
		log.Warn("RabbitMQ URL not configured, interested events will not be published")
	}

	var attachments interfaces.AttachmentStore
	objectStorage, err := storage.NewR2StorageService(cfg.R2StorageConfig)
	if err != nil {
		services.Close()
		return nil, err
	}
	if objectStorage != nil {
		services.StorageService = objectStorage
		attachments = objectStorage
	}

	services.Pipeline = email_processor.NewPipeline(cfg.SyncConfig, repos.EmailRepository, services.AIService, notifiers, attachments, log).
		WithFilter(email_filter.NewEmailFilterService())
	services.IMAPService = imap.NewIMAPService(cfg.SyncConfig, imap.NewDialer(log, cfg.SyncConfig.ConnectTimeout), services.Pipeline, log,
		imap.WithSyncStateRepository(repos.SyncStateRepository))

	names := make([]string, 0, len(notifiers))
	for _, notifier := range notifiers {
		names = append(names, notifier.Name())
	}
	log.Infof("Interested notifications go to: %v", names)

	return services, nil
}

func (s *Services) Close() error {
	if s.EventsService != nil {
		if err := s.EventsService.Close(); err != nil {
			return fmt.Errorf("failed to close events service: %w", err)
		}
	}
	return nil
}
