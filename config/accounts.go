package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/internal/models"
)

// LoadAccounts reads numbered account variables (IMAP_HOST_1, IMAP_USER_1, ...) and
// stops at the first index without a host.
func LoadAccounts(environ map[string]string) ([]*models.Account, error) {
	var accounts []*models.Account

	for i := 1; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		if environ["IMAP_HOST"+suffix] == "" {
			break
		}

		scoped := make(map[string]string)
		for key, value := range environ {
			if strings.HasSuffix(key, suffix) {
				scoped[strings.TrimSuffix(key, suffix)] = value
			}
		}

		account := &models.Account{ID: fmt.Sprintf("account_%d", i)}
		if err := env.Parse(account, env.Options{Environment: scoped}); err != nil {
			return nil, errors.Wrapf(err, "invalid configuration for %s", account.ID)
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func EnvironMap() map[string]string {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if found {
			environ[key] = value
		}
	}
	return environ
}
