package interfaces

import (
	"context"
	"time"

	"github.com/emersion/go-imap"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

// RawMessage is one fetched message as the server returned it.
type RawMessage struct {
	UID  uint32
	Body []byte
}

// MailboxConnection is one authenticated IMAP session. Commands must not be issued
// concurrently; Idle blocks until stop is closed or the command fails.
type MailboxConnection interface {
	SelectFolder(ctx context.Context, name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error)
	// Fetch streams each message onto messages as the server yields it and closes
	// the channel when done.
	Fetch(ctx context.Context, uids []uint32, messages chan<- *RawMessage) error
	Idle(ctx context.Context, stop <-chan struct{}) error
	// NewMail fires (coalesced) when the selected folder grows.
	NewMail() <-chan struct{}
	// Done is closed once the session has ended, whichever side ended it.
	Done() <-chan struct{}
	Close() error
}

type MailboxDialer func(ctx context.Context, account *models.Account) (MailboxConnection, error)

type IMAPService interface {
	ConnectAll(ctx context.Context, accounts []*models.Account)
	Reconnect(ctx context.Context, accountID string) error
	TriggerSync(accountID string) error
	TriggerSyncAll() int
	Status() []AccountStatus
	DisconnectAll(ctx context.Context) error
}

type AccountStatus struct {
	AccountID  string               `json:"accountId"`
	Username   string               `json:"user"`
	Host       string               `json:"host"`
	Connected  bool                 `json:"connected"`
	State      enum.ConnectionState `json:"state"`
	LastError  string               `json:"lastError,omitempty"`
	Renewals   int                  `json:"renewals"`
	LastSyncAt *time.Time           `json:"lastSyncAt,omitempty"`
}
