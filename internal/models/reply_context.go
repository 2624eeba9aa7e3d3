package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/utils"
)

// ReplyContext is product knowledge used when drafting suggested replies.
type ReplyContext struct {
	ID             string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Product        string    `gorm:"column:product;type:text;not null" json:"product"`
	Agenda         string    `gorm:"column:agenda;type:text;not null" json:"agenda"`
	MeetingLink    string    `gorm:"column:meeting_link;type:varchar(500)" json:"meetingLink,omitempty"`
	AdditionalInfo string    `gorm:"column:additional_info;type:text" json:"additionalInfo,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamp;index;default:current_timestamp" json:"createdAt"`
}

func (ReplyContext) TableName() string {
	return "reply_contexts"
}

func (r *ReplyContext) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("ctx", 16)
	}
	r.CreatedAt = utils.Now()
	return nil
}

// DefaultReplyContext describes mailsync itself, for installs that have not stored
// their own product context yet.
func DefaultReplyContext() *ReplyContext {
	return &ReplyContext{
		Product:        "mailsync - multi-account email sync with AI categorization",
		Agenda:         "We help teams manage multiple email accounts with AI-powered categorization and smart replies",
		MeetingLink:    "https://cal.com/example",
		AdditionalInfo: "Real-time IMAP sync, full-text email search and context-based reply suggestions",
	}
}

func (r *ReplyContext) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product: %s\nAgenda: %s", r.Product, r.Agenda)
	if r.MeetingLink != "" {
		fmt.Fprintf(&sb, "\nMeeting Link: %s", r.MeetingLink)
	}
	if r.AdditionalInfo != "" {
		fmt.Fprintf(&sb, "\nAdditional Info: %s", r.AdditionalInfo)
	}
	return sb.String()
}
