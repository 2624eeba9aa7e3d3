package email_filter

import (
	"context"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

var bounceSubjects = []string{
	"mail delivery failure",
	"undelivered mail returned to sender",
	"delivery status notification",
	"undeliverable",
	"undelivered",
	"delivery failure",
	"failure notice",
	"returned mail",
	"returned to sender",
}

type emailFilterService struct{}

func NewEmailFilterService() interfaces.EmailFilterService {
	return &emailFilterService{}
}

// Prefilter labels bounces, autoresponders and bulk mail without a model call.
// It never returns Interested.
func (s *emailFilterService) Prefilter(ctx context.Context, email *models.Email) (enum.EmailCategory, string, bool) {
	span, _ := opentracing.StartSpanFromContext(ctx, "emailFilterService.Prefilter")
	defer span.Finish()
	tracing.TagComponentService(span)

	if email == nil {
		return enum.EmailUncategorized, "", false
	}
	headers := email.Headers
	if headers == nil {
		headers = &models.EmailHeaders{}
	}

	if ok, reason := s.isBounceNotification(headers, email.Subject, email.From); ok {
		span.SetTag("filter.reason", reason)
		return enum.EmailUncategorized, reason, true
	}

	if ok, reason := s.isAutoresponder(headers); ok {
		span.SetTag("filter.reason", reason)
		return enum.EmailOutOfOffice, reason, true
	}

	if ok, reason := s.isBulkEmail(headers, email.From); ok {
		span.SetTag("filter.reason", reason)
		return enum.EmailSpam, reason, true
	}

	return enum.EmailUncategorized, "", false
}

func (s *emailFilterService) isBounceNotification(headers *models.EmailHeaders, subject, from string) (bool, string) {
	switch {
	case len(headers.XFailedRecipients) > 0:
		return true, "X-FAILED-RECIPIENTS header present"
	case strings.EqualFold(headers.ContentDescription, "delivery report"):
		return true, "CONTENT-DESCRIPTION: DELIVERY REPORT header present"
	case hasBounceKeywords(headers.ReturnPath):
		return true, "RETURN-PATH contains bounce keywords"
	case hasBounceKeywords(from):
		return true, "FROM contains bounce keywords"
	case isBounceSubject(subject):
		return true, "SUBJECT contains bounce keywords"
	default:
		return false, ""
	}
}

func (s *emailFilterService) isAutoresponder(headers *models.EmailHeaders) (bool, string) {
	switch {
	case strings.EqualFold(headers.AutoSubmitted, "auto-replied"):
		return true, "AUTO-SUBMITTED: AUTO-REPLIED header present"
	case headers.XAutoreply != "":
		return true, "X-AUTOREPLY header present"
	case headers.XAutoresponse != "":
		return true, "X-AUTORESPOND header present"
	case strings.EqualFold(headers.Precedence, "auto_reply"):
		return true, "PRECEDENCE: AUTO_REPLY header present"
	default:
		return false, ""
	}
}

func (s *emailFilterService) isBulkEmail(headers *models.EmailHeaders, from string) (bool, string) {
	switch {
	case headers.ListUnsubscribe:
		return true, "UNSUBSCRIBE header present"
	case strings.EqualFold(headers.Precedence, "bulk"),
		strings.EqualFold(headers.Precedence, "list"),
		strings.EqualFold(headers.Precedence, "junk"):
		return true, "PRECEDENCE: " + strings.ToUpper(headers.Precedence) + " header present"
	case headers.XLoop:
		return true, "X-LOOP header present"
	case strings.EqualFold(headers.AutoSubmitted, "auto-generated"):
		return true, "AUTO-SUBMITTED: AUTO-GENERATED header present"
	}

	if from == "" {
		return false, ""
	}
	if mailvalidate.ValidateEmailSyntax(from).IsSystemGenerated {
		return true, "FROM is system generated"
	}
	return false, ""
}

func hasBounceKeywords(str string) bool {
	return strings.Contains(strings.ToLower(str), "mailer-daemon")
}

func isBounceSubject(subject string) bool {
	subject = strings.ToLower(subject)
	for _, phrase := range bounceSubjects {
		if strings.Contains(subject, phrase) {
			return true
		}
	}
	return false
}
