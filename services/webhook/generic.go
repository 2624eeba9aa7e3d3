package webhook

import (
	"context"
	"net/http"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

// GenericNotifier posts a JSON event to an arbitrary endpoint.
type GenericNotifier struct {
	url    string
	client *http.Client
	log    logger.Logger
}

func NewGenericNotifier(url string, client *http.Client, log logger.Logger) *GenericNotifier {
	return &GenericNotifier{
		url:    url,
		client: client,
		log:    log,
	}
}

func (n *GenericNotifier) Name() string {
	return "generic"
}

func (n *GenericNotifier) Notify(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GenericNotifier.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	data := dto.NewInterestedEmailData(email)
	payload := dto.WebhookPayload{
		Event:     dto.EventEmailInterested,
		Timestamp: utils.Now().Format(isoTimestamp),
		Data:      &data,
	}
	if err := postJSON(ctx, n.client, n.url, payload); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	n.log.Infof("Generic webhook triggered for email %s", email.ID)
	return nil
}

func (n *GenericNotifier) test(ctx context.Context) error {
	return postJSON(ctx, n.client, n.url, dto.WebhookPayload{
		Event:     dto.EventWebhookTest,
		Timestamp: utils.Now().Format(isoTimestamp),
		Message:   "Generic webhook test successful!",
	})
}
