package dto

import (
	"time"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type SearchQuery struct {
	Query     string
	AccountID string
	Folder    string
	Category  enum.EmailCategory
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// Normalize clamps paging to sane values.
func (q *SearchQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
}

func (q *SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type SearchResult struct {
	Messages []*models.Email
	Total    int64
}
