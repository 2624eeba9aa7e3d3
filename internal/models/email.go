package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/utils"
)

// Email is the canonical message produced by the ingestion pipeline. ID is generated on
// every parse; (AccountID, MessageID) identifies the underlying mail.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string `gorm:"column:account_id;type:varchar(50);not null;uniqueIndex:uq_emails_account_message" json:"accountId"`
	MessageID string `gorm:"column:message_id;type:varchar(255);not null;uniqueIndex:uq_emails_account_message" json:"messageId"`
	Folder    string `gorm:"column:folder;type:varchar(100);index;not null" json:"folder"`
	ImapUID   uint32 `gorm:"column:imap_uid" json:"-"`

	From        string         `gorm:"column:from_address;type:varchar(255);index" json:"from"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)" json:"fromName,omitempty"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"to"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"cc,omitempty"`
	Subject     string         `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	BodyText    string         `gorm:"column:body_text;type:text" json:"body"`
	BodyHTML    string         `gorm:"column:body_html;type:text" json:"bodyHtml,omitempty"`
	Date        time.Time      `gorm:"column:date;type:timestamp;index" json:"date"`

	Category    enum.EmailCategory `gorm:"column:category;type:varchar(50);index;default:'Uncategorized'" json:"category"`
	Read        bool               `gorm:"column:read;default:false" json:"read"`
	Attachments Attachments        `gorm:"column:attachments;type:jsonb" json:"attachments,omitempty"`
	Headers     *EmailHeaders      `gorm:"-" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"-"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = NewEmailID()
	}
	if e.Category == "" {
		e.Category = enum.EmailUncategorized
	}
	e.CreatedAt = utils.Now()
	e.UpdatedAt = e.CreatedAt
	return nil
}

func NewEmailID() string {
	return utils.GenerateNanoIDWithPrefix("email", 24)
}

func (e *Email) HasAttachments() bool {
	return len(e.Attachments) > 0
}
