package webhook

import (
	"context"
	"fmt"
	"net/http"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const (
	slackPreviewLength = 200
	slackDateLayout    = "Jan 2, 2006 3:04 PM MST"
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type SlackNotifier struct {
	url    string
	client *http.Client
	log    logger.Logger
}

func NewSlackNotifier(url string, client *http.Client, log logger.Logger) *SlackNotifier {
	return &SlackNotifier{
		url:    url,
		client: client,
		log:    log,
	}
}

func (n *SlackNotifier) Name() string {
	return "slack"
}

func (n *SlackNotifier) Notify(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SlackNotifier.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	if err := postJSON(ctx, n.client, n.url, newSlackMessage(email)); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	n.log.Infof("Slack notification sent for email %s", email.ID)
	return nil
}

func (n *SlackNotifier) test(ctx context.Context) error {
	return postJSON(ctx, n.client, n.url, slackMessage{Text: "✅ Slack webhook test successful!"})
}

func newSlackMessage(email *models.Email) slackMessage {
	return slackMessage{
		Text: "🎯 New Interested Email!",
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "🎯 New Interested Email Received"},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*From:*\n" + email.From},
					{Type: "mrkdwn", Text: "*Subject:*\n" + email.Subject},
					{Type: "mrkdwn", Text: "*Date:*\n" + email.Date.Format(slackDateLayout)},
					{Type: "mrkdwn", Text: "*Account:*\n" + email.AccountID},
				},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("*Preview:*\n%s...", utils.Truncate(email.BodyText, slackPreviewLength))},
			},
		},
	}
}
