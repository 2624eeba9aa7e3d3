package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrConnectionTimeout = errors.New("connection timeout")

	// sync engine errors
	ErrConnection     = errors.New("connection error")
	ErrFolder         = errors.New("folder error")
	ErrParse          = errors.New("parse error")
	ErrClassification = errors.New("classification error")
	ErrNotification   = errors.New("notification error")

	// lookup errors
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailNotFound   = errors.New("email not found")
)

// MailError ties a failure to the account it happened on. errors.Is matches both the
// kind sentinel and anything in the wrapped chain.
type MailError struct {
	AccountID string
	Kind      error
	Err       error
}

func (e *MailError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %v", e.AccountID, e.Kind)
	}
	return fmt.Sprintf("[%s] %v: %v", e.AccountID, e.Kind, e.Err)
}

func (e *MailError) Unwrap() error {
	return e.Err
}

func (e *MailError) Is(target error) bool {
	return target == e.Kind
}

func newMailError(kind error, accountID string, err error, msg string) error {
	if msg != "" && err != nil {
		err = errors.Wrap(err, msg)
	} else if msg != "" {
		err = errors.New(msg)
	}
	return &MailError{AccountID: accountID, Kind: kind, Err: err}
}

func NewConnectionError(accountID string, err error, msg string) error {
	return newMailError(ErrConnection, accountID, err, msg)
}

func NewFolderError(accountID string, err error, msg string) error {
	return newMailError(ErrFolder, accountID, err, msg)
}

func NewParseError(accountID string, err error, msg string) error {
	return newMailError(ErrParse, accountID, err, msg)
}

func NewClassificationError(accountID string, err error, msg string) error {
	return newMailError(ErrClassification, accountID, err, msg)
}

func NewNotificationError(target string, err error) error {
	return &MailError{AccountID: target, Kind: ErrNotification, Err: err}
}
