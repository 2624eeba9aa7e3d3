package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailError_Is(t *testing.T) {
	err := NewConnectionError("account_1", io.EOF, "dial imap.example.com:993")

	assert.True(t, stderrors.Is(err, ErrConnection))
	assert.True(t, stderrors.Is(err, io.EOF))
	assert.False(t, stderrors.Is(err, ErrFolder))
	assert.Contains(t, err.Error(), "account_1")
	assert.Contains(t, err.Error(), "dial imap.example.com:993")
}

func TestMailError_As(t *testing.T) {
	err := NewFolderError("account_2", nil, "INBOX does not exist")

	var mailErr *MailError
	assert.True(t, stderrors.As(err, &mailErr))
	assert.Equal(t, "account_2", mailErr.AccountID)
	assert.Equal(t, ErrFolder, mailErr.Kind)
}
