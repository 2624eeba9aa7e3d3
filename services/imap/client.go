package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/interfaces"
	mailerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	DEFAULT_CONNECT_TIMEOUT = 30 * time.Second
	DEFAULT_COMMAND_TIMEOUT = 60 * time.Second
	DEFAULT_LOGOUT_TIMEOUT  = 5 * time.Second
	DEFAULT_POLLING_PERIOD  = time.Minute
	UPDATES_BUFFER_SIZE     = 100
	FETCH_BUFFER_SIZE       = 10
)

// imapConnection wraps one go-imap client. The client is not safe for concurrent
// commands; the owning account worker serializes access.
type imapConnection struct {
	accountID string
	client    *client.Client
	log       logger.Logger

	updates chan client.Update
	newMail chan struct{}

	// messages is the size of the selected folder. go-imap reports the EXISTS of a
	// SELECT as a unilateral update, so growth seen while selecting is not new mail.
	mailboxMu sync.Mutex
	messages  uint32
	selecting bool

	closeOnce sync.Once
	closeErr  error
}

// NewDialer returns a MailboxDialer that opens authenticated go-imap sessions.
func NewDialer(log logger.Logger, connectTimeout time.Duration) interfaces.MailboxDialer {
	if connectTimeout <= 0 {
		connectTimeout = DEFAULT_CONNECT_TIMEOUT
	}
	return func(ctx context.Context, account *models.Account) (interfaces.MailboxConnection, error) {
		return dialMailbox(ctx, account, log, connectTimeout)
	}
}

func dialMailbox(ctx context.Context, account *models.Account, log logger.Logger, timeout time.Duration) (*imapConnection, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.dialMailbox")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("server", account.Host)
	span.SetTag("port", account.Port)
	span.SetTag("tls", account.UseTLS)

	if err := ctx.Err(); err != nil {
		return nil, mailerrors.NewConnectionError(account.ID, err, "connect cancelled")
	}

	serverAddr := account.Address()
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error
	if account.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: account.Host})
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mailerrors.NewConnectionError(account.ID, err, fmt.Sprintf("failed to connect to %s", serverAddr))
	}

	c.Timeout = timeout

	caps, err := c.Capability()
	if err != nil {
		c.Terminate()
		tracing.TraceErr(span, err)
		return nil, mailerrors.NewConnectionError(account.ID, err, "failed to get capabilities")
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))
	log.Debugf("[%s] Server capabilities: %v", account.ID, caps)

	if err := c.Login(account.Username, account.Password); err != nil {
		c.Terminate()
		tracing.TraceErr(span, err)
		return nil, mailerrors.NewConnectionError(account.ID, err, fmt.Sprintf("failed to login as %s", account.Username))
	}

	c.Timeout = 0

	conn := &imapConnection{
		accountID: account.ID,
		client:    c,
		log:       log,
		updates:   make(chan client.Update, UPDATES_BUFFER_SIZE),
		newMail:   make(chan struct{}, 1),
	}
	c.Updates = conn.updates
	go conn.forwardUpdates(c.LoggedOut())

	log.Infof("[%s] Connected and logged in to %s", account.ID, serverAddr)
	span.SetTag("success", true)

	return conn, nil
}

// forwardUpdates drains unilateral server updates until the session ends. go-imap
// blocks its reader on a full Updates channel, so this loop must never stop early.
func (c *imapConnection) forwardUpdates(loggedOut <-chan struct{}) {
	for {
		select {
		case update := <-c.updates:
			c.handleUpdate(update)
		case <-loggedOut:
			return
		}
	}
}

func (c *imapConnection) handleUpdate(update client.Update) {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()

	switch u := update.(type) {
	case *client.MailboxUpdate:
		if u.Mailbox == nil {
			return
		}
		previous := c.messages
		c.messages = u.Mailbox.Messages
		if !c.selecting && c.messages > previous {
			c.log.Debugf("[%s] Mailbox grew from %d to %d messages", c.accountID, previous, c.messages)
			c.signalNewMail()
		}
	case *client.ExpungeUpdate:
		if c.messages > 0 {
			c.messages--
		}
	}
}

func (c *imapConnection) beginSelect() {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	c.selecting = true
}

// endSelect takes the folder size from the SELECT result as the new baseline.
func (c *imapConnection) endSelect(status *imap.MailboxStatus) {
	c.mailboxMu.Lock()
	defer c.mailboxMu.Unlock()
	c.selecting = false
	if status != nil {
		c.messages = status.Messages
	}
}

func (c *imapConnection) signalNewMail() {
	select {
	case c.newMail <- struct{}{}:
	default:
	}
}

func (c *imapConnection) NewMail() <-chan struct{} {
	return c.newMail
}

func (c *imapConnection) Done() <-chan struct{} {
	return c.client.LoggedOut()
}

func (c *imapConnection) SelectFolder(ctx context.Context, name string, readOnly bool) (*imap.MailboxStatus, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapConnection.SelectFolder")
	defer span.Finish()
	tracing.TagAccount(span, c.accountID)
	span.SetTag("folder.name", name)
	span.SetTag("folder.readonly", readOnly)

	c.client.Timeout = DEFAULT_COMMAND_TIMEOUT
	defer func() { c.client.Timeout = 0 }()

	c.beginSelect()
	status, err := c.client.Select(name, readOnly)
	c.endSelect(status)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mailerrors.NewFolderError(c.accountID, err, fmt.Sprintf("failed to select %s", name))
	}
	span.SetTag("folder.messages", status.Messages)

	return status, nil
}

func (c *imapConnection) Search(ctx context.Context, criteria *imap.SearchCriteria) ([]uint32, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapConnection.Search")
	defer span.Finish()
	tracing.TagAccount(span, c.accountID)

	c.client.Timeout = DEFAULT_COMMAND_TIMEOUT
	defer func() { c.client.Timeout = 0 }()

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "error searching for messages")
	}
	span.SetTag("result.count", len(uids))

	return uids, nil
}

// Fetch uses BODY.PEEK[] so fetched messages keep their unseen flag.
func (c *imapConnection) Fetch(ctx context.Context, uids []uint32, messages chan<- *interfaces.RawMessage) error {
	defer close(messages)

	span, ctx := opentracing.StartSpanFromContext(ctx, "imapConnection.Fetch")
	defer span.Finish()
	tracing.TagAccount(span, c.accountID)
	span.SetTag("uids.count", len(uids))

	if len(uids) == 0 {
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	fetched := make(chan *imap.Message, FETCH_BUFFER_SIZE)
	done := make(chan error, 1)

	c.client.Timeout = DEFAULT_COMMAND_TIMEOUT
	go func() {
		done <- c.client.UidFetch(seqSet, items, fetched)
	}()

	cancelled := false
	for msg := range fetched {
		if cancelled {
			continue
		}

		raw := &interfaces.RawMessage{UID: msg.Uid}
		if literal := msg.GetBody(section); literal != nil {
			body, err := io.ReadAll(literal)
			if err != nil {
				c.log.Warnf("[%s] Failed to read body of UID %d: %v", c.accountID, msg.Uid, err)
			}
			raw.Body = body
		}

		select {
		case messages <- raw:
		case <-ctx.Done():
			// keep draining so UidFetch can finish
			cancelled = true
		}
	}

	err := <-done
	c.client.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "IMAP fetch error")
	}
	if cancelled {
		return ctx.Err()
	}
	return nil
}

// Idle holds an IDLE command open until stop is closed. Servers without IDLE get
// NOOP polling from go-imap instead.
func (c *imapConnection) Idle(ctx context.Context, stop <-chan struct{}) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapConnection.Idle")
	defer span.Finish()
	tracing.TagAccount(span, c.accountID)

	c.client.Timeout = 0
	err := c.client.Idle(stop, &client.IdleOptions{
		LogoutTimeout: IDLE_CEILING,
		PollInterval:  DEFAULT_POLLING_PERIOD,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "IDLE failed")
	}
	return nil
}

// Close logs out, falling back to terminating the socket when the server does not
// answer within DEFAULT_LOGOUT_TIMEOUT. Safe to call more than once.
func (c *imapConnection) Close() error {
	c.closeOnce.Do(func() {
		span := opentracing.StartSpan("imapConnection.Close")
		defer span.Finish()
		tracing.TagAccount(span, c.accountID)

		if c.client.State() == imap.LogoutState {
			return
		}

		c.client.Timeout = DEFAULT_LOGOUT_TIMEOUT
		done := make(chan error, 1)
		go func() {
			done <- c.client.Logout()
		}()

		select {
		case err := <-done:
			if err != nil {
				c.log.Warnf("[%s] Error during logout: %v", c.accountID, err)
				tracing.TraceErr(span, err)
				c.client.Terminate()
			}
		case <-time.After(DEFAULT_LOGOUT_TIMEOUT):
			c.log.Warnf("[%s] Logout timed out, terminating connection", c.accountID)
			span.SetTag("timeout", true)
			c.closeErr = c.client.Terminate()
		}
	})
	return c.closeErr
}
