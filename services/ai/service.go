package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const (
	classifyBodyLimit   = 1000
	classifyTemperature = 0.3
	classifyMaxTokens   = 50
	replyTemperature    = 0.7
	replyMaxTokens      = 500
)

const classifySystemPrompt = "You are an email categorization expert. Respond with only the category name."

const replySystemPrompt = "You are a professional email assistant. Generate clear, concise, and helpful email replies."

const classifyPrompt = `Analyze this email and categorize it into ONE of these categories:
- Interested: The sender shows interest in the product/service/opportunity
- Meeting Booked: The email confirms or schedules a meeting
- Not Interested: The sender declines or shows no interest
- Spam: Promotional, unsolicited, or irrelevant content
- Out of Office: Automated out-of-office reply

Email Details:
From: %s
Subject: %s
Body: %s

Respond with ONLY the category name, nothing else.`

const replyPrompt = `Given this context about our product/service:
%s

Generate a professional reply to this email:
From: %s
Subject: %s
Body: %s

The reply should be:
- Professional and concise
- Address the sender's points
- Include relevant information from the context
- Include any meeting links or next steps mentioned in the context

Generate only the email body, no subject line.`

type aiService struct {
	cfg    *config.AIConfig
	client *http.Client
	log    logger.Logger
}

// NewAIService talks to an OpenAI-compatible chat completions endpoint.
func NewAIService(cfg *config.AIConfig, log logger.Logger) interfaces.AIService {
	timeout := 60 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return &aiService{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (s *aiService) Classify(ctx context.Context, email *models.Email) enum.EmailCategory {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email == nil {
		return enum.EmailUncategorized
	}
	tracing.TagAccount(span, email.AccountID)
	tracing.TagEntity(span, email.ID)

	content, err := s.complete(ctx, dto.ChatCompletionRequest{
		Messages: []dto.ChatMessage{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: fmt.Sprintf(classifyPrompt, email.From, email.Subject, utils.Truncate(email.BodyText, classifyBodyLimit))},
		},
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		err = mailerrors.NewClassificationError(email.AccountID, err, "chat completion failed")
		tracing.TraceErr(span, err)
		s.log.Warnf("Classification of %s failed, leaving uncategorized: %v", email.ID, err)
		return enum.EmailUncategorized
	}

	category := enum.ParseEmailCategory(content)
	span.LogFields(tracingLog.String("category", category.String()))
	s.log.Infof("Email %s categorized as: %s", email.ID, category)
	return category
}

func (s *aiService) GenerateReply(ctx context.Context, email *models.Email, replyContext string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.GenerateReply")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email == nil {
		return "", errors.New("email is nil")
	}
	tracing.TagEntity(span, email.ID)

	reply, err := s.complete(ctx, dto.ChatCompletionRequest{
		Messages: []dto.ChatMessage{
			{Role: "system", Content: replySystemPrompt},
			{Role: "user", Content: fmt.Sprintf(replyPrompt, replyContext, email.From, email.Subject, email.BodyText)},
		},
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to generate reply")
	}

	return reply, nil
}

func (s *aiService) complete(ctx context.Context, request dto.ChatCompletionRequest) (string, error) {
	if s.cfg == nil || s.cfg.ApiKey == "" {
		return "", errors.New("AI API key not configured")
	}
	request.Model = s.cfg.Model

	payload, err := json.Marshal(request)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal payload")
	}

	url := strings.TrimSuffix(s.cfg.Url, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.ApiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	var response dto.ChatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return strings.TrimSpace(response.FirstContent()), nil
}
