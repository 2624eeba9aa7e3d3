package enum

import "strings"

type EmailCategory string

const (
	EmailInterested    EmailCategory = "Interested"
	EmailMeetingBooked EmailCategory = "Meeting Booked"
	EmailNotInterested EmailCategory = "Not Interested"
	EmailSpam          EmailCategory = "Spam"
	EmailOutOfOffice   EmailCategory = "Out of Office"
	EmailUncategorized EmailCategory = "Uncategorized"
)

var emailCategories = []EmailCategory{
	EmailInterested,
	EmailMeetingBooked,
	EmailNotInterested,
	EmailSpam,
	EmailOutOfOffice,
	EmailUncategorized,
}

func (c EmailCategory) String() string {
	return string(c)
}

func (c EmailCategory) IsValid() bool {
	for _, category := range emailCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ParseEmailCategory matches a label case-insensitively, ignoring surrounding quotes
// and a trailing period. Unknown labels map to EmailUncategorized.
func ParseEmailCategory(label string) EmailCategory {
	label = strings.TrimSpace(label)
	label = strings.Trim(label, `"'`)
	label = strings.TrimSuffix(label, ".")
	for _, category := range emailCategories {
		if strings.EqualFold(label, string(category)) {
			return category
		}
	}
	return EmailUncategorized
}

func EmailCategories() []EmailCategory {
	return append([]EmailCategory(nil), emailCategories...)
}

type EmailImportSource string

const (
	EmailImportBackfill    EmailImportSource = "backfill"
	EmailImportIncremental EmailImportSource = "incremental"
)

func (s EmailImportSource) String() string {
	return string(s)
}
