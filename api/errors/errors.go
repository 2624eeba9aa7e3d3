package errors

import (
	"fmt"
	"sort"
	"strings"
)

// MultiErrors collects validation failures keyed by request field.
type MultiErrors struct {
	Errors map[string][]ErrorInfo
}

type ErrorInfo struct {
	Message  string
	RawError error
}

func NewMultiErrors() *MultiErrors {
	return &MultiErrors{
		Errors: make(map[string][]ErrorInfo),
	}
}

func (e *MultiErrors) Add(key, message string, err error) {
	e.Errors[key] = append(e.Errors[key], ErrorInfo{
		Message:  message,
		RawError: err,
	})
}

func (e *MultiErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Fields flattens the collected messages for a JSON response body.
func (e *MultiErrors) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for field, infos := range e.Errors {
		messages := make([]string, 0, len(infos))
		for _, info := range infos {
			messages = append(messages, info.Message)
		}
		fields[field] = strings.Join(messages, "; ")
	}
	return fields
}

func (e *MultiErrors) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	var parts []string
	for _, field := range keys {
		for _, info := range e.Errors[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, info.Message))
		}
	}
	return strings.Join(parts, " | ")
}
