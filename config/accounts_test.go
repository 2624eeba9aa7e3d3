package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAccounts(t *testing.T) {
	environ := map[string]string{
		"IMAP_HOST_1":     "imap.gmail.com",
		"IMAP_USER_1":     "first@example.com",
		"IMAP_PASSWORD_1": "secret-1",
		"IMAP_TLS_1":      "true",
		"IMAP_HOST_2":     "imap.fastmail.com",
		"IMAP_PORT_2":     "143",
		"IMAP_USER_2":     "second@example.com",
		"IMAP_PASSWORD_2": "secret-2",
		// gap at 3 ends the list
		"IMAP_HOST_4": "ignored.example.com",
	}

	accounts, err := LoadAccounts(environ)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, "account_1", accounts[0].ID)
	assert.Equal(t, "imap.gmail.com", accounts[0].Host)
	assert.Equal(t, 993, accounts[0].Port)
	assert.True(t, accounts[0].UseTLS)

	assert.Equal(t, "account_2", accounts[1].ID)
	assert.Equal(t, 143, accounts[1].Port)
	assert.False(t, accounts[1].UseTLS)
	assert.Equal(t, "imap.fastmail.com:143", accounts[1].Address())
}

func TestLoadAccounts_MissingCredentials(t *testing.T) {
	environ := map[string]string{
		"IMAP_HOST_1": "imap.gmail.com",
	}

	_, err := LoadAccounts(environ)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "account_1")
}

func TestLoadAccounts_None(t *testing.T) {
	accounts, err := LoadAccounts(map[string]string{"PORT": "3000"})
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestR2StorageConfig_Enabled(t *testing.T) {
	assert.False(t, (&R2StorageConfig{}).Enabled())
	assert.True(t, (&R2StorageConfig{AccountID: "a", AccessKeyID: "b", AccessKeySecret: "c"}).Enabled())
}
