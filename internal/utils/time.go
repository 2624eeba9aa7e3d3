package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// ParseDateParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates. Empty input yields nil.
func ParseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return &t, nil
	}
	t, err = time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
