package email_processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const (
	DEFAULT_CONCURRENCY     = 5
	DEFAULT_MESSAGE_TIMEOUT = 30 * time.Second
)

// Pipeline turns fetched messages into indexed, classified emails and fires
// notifications for interested replies. Each message is processed on its own; one
// failure never affects another message.
type Pipeline struct {
	index       interfaces.EmailIndex
	classifier  interfaces.Classifier
	filter      interfaces.EmailFilterService
	notifiers   []interfaces.Notifier
	attachments interfaces.AttachmentStore

	concurrency    int
	messageTimeout time.Duration
	log            logger.Logger
}

// NewPipeline builds a pipeline. classifier and attachments may be nil.
func NewPipeline(cfg *config.SyncConfig, index interfaces.EmailIndex, classifier interfaces.Classifier,
	notifiers []interfaces.Notifier, attachments interfaces.AttachmentStore, log logger.Logger) *Pipeline {
	p := &Pipeline{
		index:          index,
		classifier:     classifier,
		notifiers:      notifiers,
		attachments:    attachments,
		concurrency:    DEFAULT_CONCURRENCY,
		messageTimeout: DEFAULT_MESSAGE_TIMEOUT,
		log:            log,
	}
	if cfg != nil {
		if cfg.PipelineConcurrency > 0 {
			p.concurrency = cfg.PipelineConcurrency
		}
		if cfg.MessageTimeout > 0 {
			p.messageTimeout = cfg.MessageTimeout
		}
	}
	return p
}

// WithFilter lets filter label machine-generated mail before the classifier sees it.
func (p *Pipeline) WithFilter(filter interfaces.EmailFilterService) *Pipeline {
	p.filter = filter
	return p
}

// ProcessStream consumes messages until the channel is closed, processing up to
// concurrency messages at once, and returns once every message has finished.
func (p *Pipeline) ProcessStream(ctx context.Context, account *models.Account, folder string, messages <-chan *interfaces.RawMessage) interfaces.PipelineResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Pipeline.ProcessStream")
	defer span.Finish()
	tracing.TagComponentPipeline(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("folder.name", folder)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result interfaces.PipelineResult
	)
	semaphore := make(chan struct{}, p.concurrency)

	for raw := range messages {
		result.Received++

		semaphore <- struct{}{}
		wg.Add(1)
		go func(raw *interfaces.RawMessage) {
			defer wg.Done()
			defer func() { <-semaphore }()

			_, notified, err := p.processSafely(ctx, account, folder, raw)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Indexed++
				result.Notified += notified
			case errors.Is(err, mailerrors.ErrParse):
				result.ParseFailed++
			default:
				result.IndexFailed++
			}
		}(raw)
	}
	wg.Wait()

	span.SetTag("result.received", result.Received)
	span.SetTag("result.indexed", result.Indexed)
	span.SetTag("result.parse_failed", result.ParseFailed)
	span.SetTag("result.index_failed", result.IndexFailed)

	return result
}

// ProcessMessage runs a single message through parse, index, classify and notify.
func (p *Pipeline) ProcessMessage(ctx context.Context, account *models.Account, folder string, raw *interfaces.RawMessage) (*models.Email, error) {
	email, _, err := p.processSafely(ctx, account, folder, raw)
	return email, err
}

func (p *Pipeline) processSafely(ctx context.Context, account *models.Account, folder string, raw *interfaces.RawMessage) (email *models.Email, notified int, err error) {
	defer func() {
		if r := recover(); r != nil {
			tracing.LogPanic(p.log, r)
			err = fmt.Errorf("[%s] panic processing message: %v", account.ID, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.messageTimeout)
	defer cancel()

	return p.process(ctx, account, folder, raw)
}

func (p *Pipeline) process(ctx context.Context, account *models.Account, folder string, raw *interfaces.RawMessage) (*models.Email, int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Pipeline.process")
	defer span.Finish()
	tracing.TagComponentPipeline(span)
	tracing.TagAccount(span, account.ID)
	if raw != nil {
		span.SetTag("imap.uid", raw.UID)
	}

	email, err := ParseMessage(account.ID, folder, raw, utils.Now())
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Warnf("[%s] Skipping unparseable message: %v", account.ID, err)
		return nil, 0, err
	}
	span.SetTag("email.message_id", email.MessageID)

	p.archiveAttachments(ctx, email)

	if err := p.index.IndexMessage(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("[%s] Failed to index message %s: %v", account.ID, email.MessageID, err)
		return email, 0, errors.Wrap(err, "failed to index message")
	}
	tracing.TagEntity(span, email.ID)

	category := p.classify(ctx, email)
	span.SetTag("email.category", string(category))

	if category != enum.EmailUncategorized {
		err := p.index.UpdateMessage(ctx, email.ID, map[string]interface{}{"category": category})
		if err != nil {
			tracing.TraceErr(span, err)
			p.log.Errorf("[%s] Failed to store category %s for %s: %v", account.ID, category, email.ID, err)
		}
		email.Category = category
	}

	notified := 0
	if category == enum.EmailInterested {
		notified = p.notify(ctx, email)
	}

	p.log.Debugf("[%s] Processed %s (%s) as %s", account.ID, email.ID, email.MessageID, category)
	return email, notified, nil
}

func (p *Pipeline) classify(ctx context.Context, email *models.Email) enum.EmailCategory {
	if p.filter != nil {
		if category, reason, ok := p.filter.Prefilter(ctx, email); ok {
			p.log.Debugf("[%s] %s labelled %s without classifier: %s", email.AccountID, email.ID, category, reason)
			return category
		}
	}
	if p.classifier == nil {
		return enum.EmailUncategorized
	}
	category := p.classifier.Classify(ctx, email)
	if !category.IsValid() {
		return enum.EmailUncategorized
	}
	return category
}

// notify delivers to every notifier concurrently and returns how many succeeded.
func (p *Pipeline) notify(ctx context.Context, email *models.Email) int {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Pipeline.notify")
	defer span.Finish()
	tracing.TagEntity(span, email.ID)

	var wg sync.WaitGroup
	var delivered int64

	for _, notifier := range p.notifiers {
		wg.Add(1)
		go func(notifier interfaces.Notifier) {
			defer wg.Done()
			defer tracing.RecoverAndLogToJaeger(p.log)

			if err := notifier.Notify(ctx, email); err != nil {
				err = mailerrors.NewNotificationError(notifier.Name(), err)
				tracing.TraceErr(span, err)
				p.log.Errorf("[%s] Notification for %s failed: %v", email.AccountID, email.ID, err)
				return
			}
			atomic.AddInt64(&delivered, 1)
		}(notifier)
	}
	wg.Wait()

	span.SetTag("notifications.delivered", delivered)
	return int(delivered)
}

func (p *Pipeline) archiveAttachments(ctx context.Context, email *models.Email) {
	if p.attachments == nil || len(email.Attachments) == 0 {
		return
	}

	for i := range email.Attachments {
		attachment := &email.Attachments[i]
		if len(attachment.Content) == 0 {
			continue
		}
		key, err := p.attachments.StoreAttachment(ctx, email, attachment)
		if err != nil {
			p.log.Warnf("[%s] Failed to archive attachment %s of %s: %v", email.AccountID, attachment.Filename, email.MessageID, err)
			continue
		}
		attachment.StorageKey = key
	}
}
