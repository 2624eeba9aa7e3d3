package email_filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

func TestPrefilter(t *testing.T) {
	tests := []struct {
		name     string
		email    *models.Email
		category enum.EmailCategory
		ok       bool
	}{
		{
			name:     "bounce by failed recipients header",
			email:    &models.Email{From: "postmaster@acme.io", Subject: "Notice", Headers: &models.EmailHeaders{XFailedRecipients: []string{"bob@acme.io"}}},
			category: enum.EmailUncategorized,
			ok:       true,
		},
		{
			name:     "bounce by mailer-daemon sender",
			email:    &models.Email{From: "MAILER-DAEMON@mx.acme.io", Subject: "Hi"},
			category: enum.EmailUncategorized,
			ok:       true,
		},
		{
			name:     "bounce by subject",
			email:    &models.Email{From: "postmaster@acme.io", Subject: "Undelivered Mail Returned to Sender"},
			category: enum.EmailUncategorized,
			ok:       true,
		},
		{
			name:     "auto reply",
			email:    &models.Email{From: "jane@prospect.com", Subject: "Re: demo", Headers: &models.EmailHeaders{AutoSubmitted: "auto-replied"}},
			category: enum.EmailOutOfOffice,
			ok:       true,
		},
		{
			name:     "x-autoreply",
			email:    &models.Email{From: "jane@prospect.com", Subject: "Away", Headers: &models.EmailHeaders{XAutoreply: "yes"}},
			category: enum.EmailOutOfOffice,
			ok:       true,
		},
		{
			name:     "newsletter",
			email:    &models.Email{From: "jane@prospect.com", Subject: "Weekly digest", Headers: &models.EmailHeaders{ListUnsubscribe: true}},
			category: enum.EmailSpam,
			ok:       true,
		},
		{
			name:     "precedence bulk",
			email:    &models.Email{From: "jane@prospect.com", Subject: "Offer", Headers: &models.EmailHeaders{Precedence: "Bulk"}},
			category: enum.EmailSpam,
			ok:       true,
		},
		{
			name:  "human reply",
			email: &models.Email{From: "jane@prospect.com", Subject: "Re: demo", Headers: &models.EmailHeaders{}},
			ok:    false,
		},
		{
			name:  "no headers",
			email: &models.Email{From: "jane@prospect.com", Subject: "Re: demo"},
			ok:    false,
		},
	}

	filter := NewEmailFilterService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, reason, ok := filter.Prefilter(context.Background(), tt.email)

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.category, category)
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestPrefilter_NeverInterested(t *testing.T) {
	category, _, ok := NewEmailFilterService().Prefilter(context.Background(), nil)

	assert.False(t, ok)
	assert.NotEqual(t, enum.EmailInterested, category)
}
