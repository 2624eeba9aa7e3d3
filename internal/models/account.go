package models

import "fmt"

// Account holds the connection parameters of one mailbox. Loaded once at startup.
type Account struct {
	ID       string
	Host     string `env:"IMAP_HOST,required"`
	Port     int    `env:"IMAP_PORT" envDefault:"993"`
	Username string `env:"IMAP_USER,required"`
	Password string `env:"IMAP_PASSWORD,required"`
	UseTLS   bool   `env:"IMAP_TLS" envDefault:"false"`
}

func (a *Account) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func (a *Account) String() string {
	return fmt.Sprintf("%s (%s@%s)", a.ID, a.Username, a.Address())
}
