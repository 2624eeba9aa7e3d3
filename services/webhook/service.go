package webhook

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
)

const DEFAULT_WEBHOOK_TIMEOUT = 10 * time.Second

type webhookService struct {
	slack   *SlackNotifier
	generic *GenericNotifier
	log     logger.Logger
}

// NewWebhookService builds a notifier for every configured URL; unset URLs are skipped.
func NewWebhookService(cfg *config.WebhookConfig, log logger.Logger) interfaces.WebhookService {
	s := &webhookService{log: log}
	if cfg == nil {
		return s
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_WEBHOOK_TIMEOUT
	}
	client := &http.Client{Timeout: timeout}

	if cfg.SlackURL != "" {
		s.slack = NewSlackNotifier(cfg.SlackURL, client, log)
	} else {
		log.Warn("Slack webhook URL not configured")
	}
	if cfg.GenericURL != "" {
		s.generic = NewGenericNotifier(cfg.GenericURL, client, log)
	} else {
		log.Warn("Generic webhook URL not configured")
	}
	return s
}

func (s *webhookService) Notifiers() []interfaces.Notifier {
	var notifiers []interfaces.Notifier
	if s.slack != nil {
		notifiers = append(notifiers, s.slack)
	}
	if s.generic != nil {
		notifiers = append(notifiers, s.generic)
	}
	return notifiers
}

// TestWebhooks sends a test payload to each configured target. A target that is not
// configured reports false.
func (s *webhookService) TestWebhooks(ctx context.Context) dto.WebhookTestResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookService.TestWebhooks")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	var (
		result dto.WebhookTestResult
		wg     sync.WaitGroup
	)

	if s.slack != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.slack.test(ctx); err != nil {
				tracing.TraceErr(span, err)
				s.log.Errorf("Slack webhook test failed: %v", err)
				return
			}
			result.Slack = true
			s.log.Info("Slack webhook test passed")
		}()
	}

	if s.generic != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.generic.test(ctx); err != nil {
				tracing.TraceErr(span, err)
				s.log.Errorf("Generic webhook test failed: %v", err)
				return
			}
			result.Generic = true
			s.log.Info("Generic webhook test passed")
		}()
	}

	wg.Wait()
	tracing.LogObjectAsJson(span, "result", result)
	return result
}
