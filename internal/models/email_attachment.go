package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Inline      bool   `json:"inline,omitempty"`
	StorageKey  string `json:"storageKey,omitempty"`

	Content []byte `json:"-"`
}

// Attachments is stored as a JSONB array; Content never leaves the process.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(value interface{}) error {
	if value == nil {
		*a = Attachments{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported attachments column type %T", value)
	}

	return json.Unmarshal(bytes, a)
}
