package utils

import (
	"fmt"
)

const LocalMessageIDDomain = "mailsync.local"

// GenerateMessageID builds an RFC 5322 style id for mail that arrived without one.
func GenerateMessageID() string {
	return fmt.Sprintf("<%s@%s>", GenerateUUID(), LocalMessageIDDomain)
}
