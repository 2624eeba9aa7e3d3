package email_processor

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/jhillyerd/enmime"
	"github.com/lib/pq"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/utils"
)

const (
	DefaultSubject            = "(No Subject)"
	DefaultAttachmentFilename = "unknown"
)

// ParseMessage turns one raw RFC 5322 message into an Email. Missing fields get
// defaults, including an empty sender; only a body enmime cannot read is a ParseError.
func ParseMessage(accountID, folder string, raw *interfaces.RawMessage, receivedAt time.Time) (*models.Email, error) {
	if raw == nil || len(bytes.TrimSpace(raw.Body)) == 0 {
		return nil, mailerrors.NewParseError(accountID, nil, "empty message body")
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, mailerrors.NewParseError(accountID, err, "failed to read message")
	}
	if envelope.Root == nil || len(envelope.Root.Header) == 0 {
		return nil, mailerrors.NewParseError(accountID, nil, "message has no headers")
	}

	email := &models.Email{
		ID:        models.NewEmailID(),
		AccountID: accountID,
		Folder:    folder,
		ImapUID:   raw.UID,
		Category:  enum.EmailUncategorized,
		Read:      false,
	}

	processSender(email, envelope)

	email.MessageID = strings.TrimSpace(envelope.GetHeader("Message-ID"))
	if email.MessageID == "" {
		email.MessageID = utils.GenerateMessageID()
	}

	email.Subject = strings.TrimSpace(envelope.GetHeader("Subject"))
	if email.Subject == "" {
		email.Subject = DefaultSubject
	}

	email.Date = receivedAt.UTC()
	if date, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		email.Date = date.UTC()
	}

	email.ToAddresses = addressList(envelope, "To")
	email.CcAddresses = addressList(envelope, "Cc")
	email.Headers = readHeaders(envelope)

	processBody(email, envelope)
	processAttachments(email, envelope)

	return email, nil
}

func processSender(email *models.Email, envelope *enmime.Envelope) {
	header := strings.TrimSpace(envelope.GetHeader("From"))
	if header == "" {
		return
	}

	addresses, err := envelope.AddressList("From")
	if err != nil || len(addresses) == 0 {
		// keep whatever the header said; some senders use non-RFC display names
		email.From = header
		return
	}

	sender := addresses[0]
	email.FromName = sender.Name
	email.From = cleanAddress(sender.Address)
}

func cleanAddress(address string) string {
	validation := mailvalidate.ValidateEmailSyntax(address)
	if validation.IsValid && validation.CleanEmail != "" {
		return validation.CleanEmail
	}
	return strings.ToLower(strings.TrimSpace(address))
}

func addressList(envelope *enmime.Envelope, header string) pq.StringArray {
	addresses, err := envelope.AddressList(header)
	if err != nil || len(addresses) == 0 {
		return pq.StringArray{}
	}

	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address.Address == "" {
			continue
		}
		result = append(result, cleanAddress(address.Address))
	}
	return pq.StringArray(utils.UniqueEmails(result))
}

func readHeaders(envelope *enmime.Envelope) *models.EmailHeaders {
	return &models.EmailHeaders{
		AutoSubmitted:      strings.TrimSpace(envelope.GetHeader("Auto-Submitted")),
		ContentDescription: strings.TrimSpace(envelope.GetHeader("Content-Description")),
		ListUnsubscribe:    envelope.GetHeader("List-Unsubscribe") != "",
		Precedence:         strings.TrimSpace(envelope.GetHeader("Precedence")),
		ReturnPath:         strings.TrimSpace(envelope.GetHeader("Return-Path")),
		XAutoreply:         strings.TrimSpace(envelope.GetHeader("X-Autoreply")),
		XAutoresponse:      strings.TrimSpace(envelope.GetHeader("X-Autorespond")),
		XLoop:              envelope.GetHeader("X-Loop") != "",
		XFailedRecipients:  envelope.GetHeaderValues("X-Failed-Recipients"),
	}
}

func processBody(email *models.Email, envelope *enmime.Envelope) {
	email.BodyText = strings.TrimSpace(envelope.Text)
	email.BodyHTML = envelope.HTML

	if email.BodyText == "" && email.BodyHTML != "" {
		if text, err := utils.HTMLToPlainText(email.BodyHTML); err == nil {
			email.BodyText = text
		}
	}
}

func processAttachments(email *models.Email, envelope *enmime.Envelope) {
	attachments := make(models.Attachments, 0, len(envelope.Attachments)+len(envelope.Inlines))

	for _, part := range envelope.Attachments {
		attachments = append(attachments, newAttachment(part, false))
	}
	for _, part := range envelope.Inlines {
		attachments = append(attachments, newAttachment(part, true))
	}

	if len(attachments) > 0 {
		email.Attachments = attachments
	}
}

func newAttachment(part *enmime.Part, inline bool) models.Attachment {
	filename := strings.TrimSpace(part.FileName)
	if filename == "" {
		filename = DefaultAttachmentFilename
	}
	return models.Attachment{
		Filename:    filename,
		ContentType: part.ContentType,
		Size:        len(part.Content),
		Inline:      inline,
		Content:     part.Content,
	}
}
